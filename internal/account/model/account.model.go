package model

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// User is the stored account record.
type User struct {
	Username     string
	PasswordHash string
	WrappedKey   []byte
	WrappedNonce []byte
	CreatedAt    int64
}
