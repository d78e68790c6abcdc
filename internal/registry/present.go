package registry

import (
	"errors"

	"github.com/vietddude/cemetery/internal/core/authz"
	"github.com/vietddude/cemetery/internal/infra/rpc/routing"
)

// Present maps a Client error to what the user sees. Authorization failures
// name the terminal view that replaces the requested content.
func Present(err error) routing.Presentation {
	var denial *authz.Denial
	switch {
	case errors.As(err, &denial):
		return routing.Presentation{
			Kind:  routing.PresentTerminal,
			Class: routing.ClassAuthorization,
			Text:  viewText(denial.View),
		}
	case errors.Is(err, authz.ErrNotResolved):
		return routing.Presentation{
			Kind:      routing.PresentNotice,
			Class:     routing.ClassConnectivity,
			Text:      "checking access, please retry",
			Retryable: true,
		}
	}
	return routing.Outcome(err)
}

func viewText(v authz.View) string {
	switch v {
	case authz.ViewLoginRequired:
		return "login required"
	case authz.ViewPending:
		return "checking access"
	default:
		return "access denied"
	}
}
