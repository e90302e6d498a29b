package models

// Client is a registered library patron. The password is never stored; Salt
// and Verifier hold the argon2id derivation of it.
type Client struct {
	UserName string
	Name     string
	Salt     []byte
	Verifier []byte
}
