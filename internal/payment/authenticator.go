package payment

// Authenticator checks a card's secret. A number with no secret on file fails
// the same way a wrong password does.
type Authenticator struct {
	secrets map[string]string
}

func NewAuthenticator(secrets map[string]string) *Authenticator {
	cp := make(map[string]string, len(secrets))
	for k, v := range secrets {
		cp[k] = v
	}
	return &Authenticator{secrets: cp}
}

func (a *Authenticator) Authenticate(number, password string) bool {
	stored, ok := a.secrets[number]
	if !ok {
		return false
	}
	return VerifySecret(password, stored)
}
