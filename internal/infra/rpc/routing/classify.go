package routing

import (
	"errors"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vietddude/cemetery/internal/core/domain"
	"github.com/vietddude/cemetery/internal/infra/rpc/provider"
)

// FailureClass determines how a failed call is handled.
type FailureClass int

const (
	// ClassConnectivity is transient; the call may be retried.
	ClassConnectivity FailureClass = iota
	// ClassDomain is a deterministic business-rule rejection.
	ClassDomain
	// ClassAuthorization means the caller's identity lacks the capability.
	ClassAuthorization
)

func (c FailureClass) String() string {
	switch c {
	case ClassConnectivity:
		return "connectivity"
	case ClassDomain:
		return "domain"
	case ClassAuthorization:
		return "authorization"
	default:
		return "unknown"
	}
}

// ErrorInfoDomain marks gRPC ErrorInfo details that carry a registry DomainError kind.
const ErrorInfoDomain = "registry"

var authorizationPhrases = []string{
	"unauthorized",
	"only the boss",
	"boss-lock",
	"only admins",
	"only users",
	"only managers",
	"access denied",
	"neither boss nor manager",
	"login required",
}

// Classify assigns err to exactly one failure class. Authorization is checked
// before domain so a typed unauthorized result is never handled as a plain
// business-rule rejection.
func Classify(err error) FailureClass {
	if err == nil {
		return ClassConnectivity
	}

	if isAuthorization(err) {
		return ClassAuthorization
	}

	if _, ok := domain.AsDomainError(err); ok {
		return ClassDomain
	}
	if _, ok := domainKindFromStatus(err); ok {
		return ClassDomain
	}

	return ClassConnectivity
}

// DomainErrorFromStatus rebuilds a DomainError carried as a gRPC ErrorInfo detail.
func DomainErrorFromStatus(err error) (*domain.DomainError, bool) {
	info, ok := domainKindFromStatus(err)
	if !ok {
		return nil, false
	}
	de := &domain.DomainError{Kind: domain.ErrorKind(info.GetReason())}
	md := info.GetMetadata()
	de.Alley = md["alley"]
	de.Field = md["field"]
	return de, true
}

func isAuthorization(err error) bool {
	if de, ok := domain.AsDomainError(err); ok {
		return de.Kind == domain.KindUnauthorized
	}

	if errors.Is(err, provider.ErrServiceUnavailable) {
		return false
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.PermissionDenied, codes.Unauthenticated:
			return true
		}
	}

	var fault *provider.Fault
	if errors.As(err, &fault) {
		return matchesAuthorization(fault.Message)
	}

	return matchesAuthorization(err.Error())
}

func matchesAuthorization(msg string) bool {
	lower := strings.ToLower(msg)
	for _, phrase := range authorizationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func domainKindFromStatus(err error) (*errdetails.ErrorInfo, bool) {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return nil, false
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorInfoDomain {
			return info, true
		}
	}
	return nil, false
}
