package app

import "github.com/spf13/pflag"

// RegisterScanFlags registers the scan pipeline flags on the given FlagSet
func RegisterScanFlags(flags *pflag.FlagSet) {
	flags.StringP("connections", "c", "", "Path to the LinkedIn connections CSV export")
	flags.StringP("output", "o", "", "Report output path (default: stdout)")
	flags.StringP("format", "f", "", "Report format: html or json")
	flags.IntP("delay-ms", "d", 0, "Initial delay between searches in milliseconds")
	flags.IntP("max-hits", "m", 0, "Maximum hit excerpts to request per contact")
	flags.IntP("max-contacts", "n", 0, "Limit the scan to the first N contacts (0 = all)")
	flags.Bool("include-hits", true, "Include hit excerpts in the report")
	flags.String("logo", "", "Path to a PNG logo embedded in the HTML report")
}

// RegisterServeFlags registers the REST API server flags on the given FlagSet
func RegisterServeFlags(flags *pflag.FlagSet) {
	flags.StringP("host", "H", "", "Host to bind the API server to")
	flags.IntP("port", "p", 0, "Port to bind the API server to")
	flags.StringSlice("cors-origins", nil, "Allowed CORS origins (comma-separated, wildcard rejected)")
	flags.StringP("auth-type", "a", "", "Authentication type: none, bearer, or apikey")
	flags.String("auth-bearer-token", "", "Bearer token for bearer auth")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
}
