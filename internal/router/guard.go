package router

import "context"

// Session is the part of the session store the guard reads.
type Session interface {
	IsAuthenticated() bool

	// Resolved reports whether the session state is known without asking
	// the server: authenticated, or settled as anonymous by a failed
	// verification or a logout.
	Resolved() bool

	FetchUserState(ctx context.Context) error
}

// NewGuard returns the authentication guard.
//
// Verification is lazy: the session is only verified when a protected route
// is entered and its state is still unknown, so anonymous browsing of public
// routes costs no requests and a cold protected entry costs exactly one.
func NewGuard(s Session) Guard {
	return func(ctx context.Context, to, from Route) (string, error) {
		if to.RequiresAuth && !s.IsAuthenticated() && !s.Resolved() {
			// A failure leaves the session anonymous; the check below redirects.
			_ = s.FetchUserState(ctx)
		}

		switch {
		case to.RequiresAuth && !s.IsAuthenticated():
			return Login, nil
		case to.GuestOnly && s.IsAuthenticated():
			return Landing, nil
		}
		return "", nil
	}
}
