package highlight

import "errors"

// ErrMalformedPayload indicates the engine response does not have the
// expected shape. It signals a broken engine contract, not missing data.
var ErrMalformedPayload = errors.New("malformed engine payload")
