// Package urls holds the external links devicechat prints in help text and
// troubleshooting output.
//
// Usage:
//
//	import "github.com/muurk/devicechat/internal/urls"
//
//	fmt.Printf("Create an API key at %s\n", urls.GeminiAPIKey)
package urls
