// Package httpx contains helpers for outgoing HTTP calls: a logging
// RoundTripper used by the Telegram notifier client.
package httpx

import "dms_sales/pkg/contextx"

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals
