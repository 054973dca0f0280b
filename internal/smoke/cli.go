package smoke

import "os"

// ShowHelp prints usage information for the smoke tool.
func ShowHelp() {
	os.Stdout.WriteString(`Recommendation API smoke checker
================================

Walks the catalog, checks popularity, search and item lookups, then
requests recommendations concurrently and verifies every answer.

Usage:
  go run ./cmd/smoke [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:5001")
  -users string
        Comma separated user ids to request recommendations for (default "1,2,3")
  -limit int
        Page size used when walking the catalog (default 20)
  -pages int
        Maximum pages walked (default 50)
  -workers int
        Concurrent recommendation requests (default CPU cores)
  -timeout duration
        HTTP request timeout (default 60s)
  -allow-busy
        Count 503 busy answers as passing
  -verbose
        Log every recommendation response
  -help
        Show this help message
`)
}
