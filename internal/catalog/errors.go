package catalog

import (
	"fmt"
	"strings"
)

// MissingParameterError indicates a required tree scope parameter was absent or blank.
type MissingParameterError struct {
	Params []string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameters: %s", strings.Join(e.Params, " and "))
}

// FetchError wraps a failure of the data-access collaborator during a tree rebuild.
// It is absorbed by the tree caches and only reaches logs and the refresh hook.
type FetchError struct {
	Op    string
	Scope string
	Err   error
}

func (e *FetchError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("failed to fetch %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to fetch %s for %s: %v", e.Op, e.Scope, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
