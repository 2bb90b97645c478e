// Package middlewarex contains the HTTP middleware chain shared by the service
// servers.
package middlewarex

import "dms_sales/pkg/contextx"

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals
