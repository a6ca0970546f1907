package server

import (
	"time"

	"github.com/dotside-studios/rfid-sfl/buildinfo"
)

// mDNS service discovery
var (
	MDNSServiceType = "_rfid-sfl._tcp"
	MDNSServiceName = buildinfo.DisplayName
	MDNSDomain      = "local."
)

// CORS configuration
const (
	CORSAllowOrigin  = "*"
	CORSAllowMethods = "GET, POST, OPTIONS"
	CORSAllowHeaders = "Content-Type, X-Request-ID"
)

// Response content types.
const (
	ContentTypeJSON = "application/json;charset=utf-8"
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
)

// Query and form values of the /rfid/ endpoint.
const (
	ActionGetDevicesList = "getDevicesList"
	ActionGetItemsList   = "getItemsList"
	ActionWriteTags      = "writeTags"

	paramAction   = "action"
	paramDeviceID = "deviceId"
)

// RFIDIndexBody is served by GET /rfid/ without an action.
const RFIDIndexBody = "./rfid works"

const (
	gracefulShutdownTimeout = 10 * time.Second
	maxRequestBodySize      = 1 << 20
	wsMaxMessageSize        = 1 << 20
	defaultStatusInterval   = 5 * time.Second
)
