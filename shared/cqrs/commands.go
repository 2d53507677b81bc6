package cqrs

// AddAccountCommand asks the registry to insert Account on behalf of Caller.
type AddAccountCommand struct {
	Account string
	Caller  string
}

// RemoveAccountCommand asks the registry to delete Account on behalf of Caller.
type RemoveAccountCommand struct {
	Account string
	Caller  string
}

type ChallengeCommand struct {
	Address string
}

type LoginCommand struct {
	Address   string
	Signature string
}

type RefreshTokenCommand struct {
	Token string
}
