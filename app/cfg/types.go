package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Fetch configuration
	FetchConcurrency int
	FetchSizeLimit   int
	UserAgent        string

	// Remote dataset store configuration
	HubEndpoint string
	HubRepo     string
	HubFilename string
	HubToken    string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
