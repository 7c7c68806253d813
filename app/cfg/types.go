package cfg

type Cfg struct {
	// Content configuration
	ArticlesDir string
	DBPath      string
	SitemapPath string

	// Application configuration
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	PublishDelay      int
	APIAccessKey      string

	// External collaborators
	NewsletterUrl string
	IndexNowUrl   string
	IndexNowKey   string
	RedisAddr     string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
