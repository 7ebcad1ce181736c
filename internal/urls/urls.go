package urls

// Repository is the project home, shown in help output and the TUI header
const Repository = "https://github.com/muurk/devicechat"

// Issues is where bug reports go
const Issues = Repository + "/issues"

// GeminiAPIKey is where users create the API key devicechat needs
const GeminiAPIKey = "https://aistudio.google.com/app/apikey"

// GeminiAPIDocs is the reference for the REST API the chat client speaks,
// including model names accepted by chat.model.
const GeminiAPIDocs = "https://ai.google.dev/gemini-api/docs"
