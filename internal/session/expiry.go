package session

import (
	"context"

	"google.golang.org/api/googleapi"

	"taskmate/internal/httpclient"
	"taskmate/internal/notify"
)

// InstallExpiryInterceptor makes every 401 seen by hc end an authenticated
// session: the store is logged out and n is told once. 401s while anonymous
// (a failed login, a cold verification) are left to their callers.
// Installing twice for the same store has no further effect.
func InstallExpiryInterceptor(hc *httpclient.Client, s *Store, n notify.Notifier) {
	if n == nil {
		n = notify.Discard
	}
	s.interceptorOnce.Do(func() {
		hc.OnUnauthorized(func(ctx context.Context, err *googleapi.Error) {
			if !s.IsAuthenticated() {
				return
			}
			if s.ExpireSession(ctx) {
				n.Notify(notify.Notification{Level: notify.Error, Message: MsgSessionExpired})
			}
		})
	})
}
