package aws

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrNotFound marks a target that does not exist on the remote side.
// Teardown code treats it as a benign already-absent outcome; verification
// of presence treats it as a failure. Adapters classify raw SDK errors into
// this sentinel at the boundary so orchestration code never inspects
// service-specific exception types.
var ErrNotFound = errors.New("resource not found")

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFoundErr(kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
}

// apiErrorCode reports whether err is a smithy API error with one of the
// given codes.
func apiErrorCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}

// stackMissing recognizes the CloudFormation "stack does not exist"
// validation error, which has no dedicated exception type.
func stackMissing(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "does not exist")
}
