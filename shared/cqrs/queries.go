package cqrs

// SizeQuery counts current registry members.
type SizeQuery struct{}

// GetMemberQuery fetches a single member by account address.
type GetMemberQuery struct {
	Account string
}

// ListMembersQuery pages through members ordered by the time they were added.
type ListMembersQuery struct {
	Offset int
	Limit  int
}

// ListActivityQuery fetches the most recent registry events, newest first.
type ListActivityQuery struct {
	Limit int
}
