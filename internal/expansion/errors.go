package expansion

import "fmt"

// Kind is the expansion-time error taxonomy from spec.md §7. It lets callers
// switch on error category (via errors.As against *Error) instead of
// matching message text.
type Kind string

const (
	KindViewNotFound     Kind = "ViewNotFound"
	KindUnknownDimension Kind = "UnknownDimension"
	KindUnknownMetric    Kind = "UnknownMetric"
	KindDuplicateName    Kind = "DuplicateRequestName"
	KindEmptyRequest     Kind = "EmptyRequest"
)

// Error is the error type returned by Expand. It always identifies the view
// and, where applicable, the offending name and the closest known candidate.
type Error struct {
	Kind     Kind
	ViewName string
	Name     string // offending identifier, if any
	Closest  string // nearest known candidate, if any

	msg string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindViewNotFound:
		if e.Closest != "" {
			return fmt.Sprintf("view %q not found; did you mean %q?", e.ViewName, e.Closest)
		}
		return fmt.Sprintf("view %q not found", e.ViewName)
	case KindUnknownDimension, KindUnknownMetric:
		kind := "dimension"
		if e.Kind == KindUnknownMetric {
			kind = "metric"
		}
		if e.Closest != "" {
			return fmt.Sprintf("view %q: unknown %s %q. Did you mean '%s'?", e.ViewName, kind, e.Name, e.Closest)
		}
		return fmt.Sprintf("view %q: unknown %s %q", e.ViewName, kind, e.Name)
	case KindDuplicateName:
		return fmt.Sprintf("view %q: duplicate name %q in request", e.ViewName, e.Name)
	case KindEmptyRequest:
		return fmt.Sprintf("view %q: request must include at least one dimension or metric", e.ViewName)
	default:
		return e.msg
	}
}
