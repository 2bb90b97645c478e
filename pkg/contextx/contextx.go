// Package contextx carries request-scoped values (logger, trace id, acting
// user) through context.Context.
package contextx

import "errors"

var ErrNoValue = errors.New("no value in context")
