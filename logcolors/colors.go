package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"

	// Bright variants for more color variety
	BrightGreen   = "\033[92m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"

	Red       = "\033[31m"
	BrightRed = "\033[91m"
	Yellow    = "\033[33m"
)

// Cache-related log prefixes
const (
	LogCacheInit     = Blue + "[Cache:Init]" + Reset
	LogCache         = Blue + "[Cache]" + Reset
	LogCacheFast     = BrightBlue + "[Cache:Fast]" + Reset
	LogCacheDurable  = Blue + "[Cache:Durable]" + Reset
	LogCacheBackup   = Blue + "[Cache:Backup]" + Reset
	LogCacheClear    = Blue + "[Cache:Clear]" + Reset
	LogCacheBackups  = Blue + "[Cache:Backups]" + Reset
	LogCacheNegative = Cyan + "[Cache:Negative]" + Reset
)

// Rate limiting log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
	LogBackoff   = Purple + "[Backoff]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}

// providerColors are rotated by name hash so each provider keeps one color
var providerColors = []string{
	Green, Blue, Purple, Cyan, Red,
	BrightGreen, BrightBlue, BrightMagenta, BrightCyan, BrightRed,
}

// Provider returns a colored "[Provider:name]" prefix.
// Same provider name always gets the same color.
func Provider(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	color := providerColors[hash%len(providerColors)]
	return color + "[Provider:" + name + "]" + Reset
}

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
	LogStats  = Blue + "[Stats]" + Reset
)

// Notification log prefixes
const (
	LogNotifier = Cyan + "[Notifier]" + Reset
	LogAlerts   = Cyan + "[Alerts]" + Reset
)

// Resolution pipeline log prefixes
const (
	LogRequest  = Purple + "[Request]" + Reset
	LogResolve  = Green + "[Resolve]" + Reset
	LogFanout   = Cyan + "[Fanout]" + Reset
	LogSelect   = Green + "[Select]" + Reset
	LogMerge    = BrightMagenta + "[Merge]" + Reset
	LogVerify   = BrightCyan + "[Verify]" + Reset
	LogSearch   = Blue + "[Search]" + Reset
	LogMatch    = Green + "[Match]" + Reset
	LogSuccess  = Green + "[Success]" + Reset
	LogNotFound = Cyan + "[Not Found]" + Reset
	LogWarning  = Red + "[Warning]" + Reset
)
