package routing

import "github.com/vietddude/cemetery/internal/core/domain"

// PresentationKind is how a failure reaches the user.
type PresentationKind int

const (
	// PresentNotice is a dismissible, retryable indication.
	PresentNotice PresentationKind = iota
	// PresentMessage names the violated business rule.
	PresentMessage
	// PresentTerminal replaces the requested content entirely.
	PresentTerminal
)

// ConnectivityNotice is shown for transient failures.
const ConnectivityNotice = "connection error, please retry"

// Presentation is the user-visible rendering of a failure.
type Presentation struct {
	Kind      PresentationKind
	Class     FailureClass
	Text      string
	Retryable bool
}

// Outcome maps a failure to its presentation.
func Outcome(err error) Presentation {
	class := Classify(err)
	switch class {
	case ClassAuthorization:
		return Presentation{Kind: PresentTerminal, Class: class, Text: "access denied"}
	case ClassDomain:
		de, ok := domain.AsDomainError(err)
		if !ok {
			de, _ = DomainErrorFromStatus(err)
		}
		text := "request rejected."
		if de != nil {
			text = de.Message()
		}
		return Presentation{Kind: PresentMessage, Class: class, Text: text}
	default:
		return Presentation{Kind: PresentNotice, Class: class, Text: ConnectivityNotice, Retryable: true}
	}
}
