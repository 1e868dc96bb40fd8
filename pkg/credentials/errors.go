package credentials

import "fmt"

// CredentialError reports that credentials could not be obtained from the secret store.
// It is terminal: callers must not substitute other credentials.
type CredentialError struct {
	Store      string
	SecretName string
	Err        error
}

func (e *CredentialError) Error() string {
	switch {
	case e.Store == "":
		return fmt.Sprintf("unable to resolve credentials from secret %q: %v", e.SecretName, e.Err)
	case e.SecretName == "":
		return fmt.Sprintf("unable to resolve credentials from %s: %v", e.Store, e.Err)
	default:
		return fmt.Sprintf("unable to resolve credentials from %s secret %q: %v", e.Store, e.SecretName, e.Err)
	}
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// Cause lets github.com/pkg/errors unwrap the error.
func (e *CredentialError) Cause() error {
	return e.Err
}
