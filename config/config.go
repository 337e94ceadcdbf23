package config

// Config contains all configuration grouped by domain
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Admin    AdminConfig    `yaml:"admin"`
	Worker   WorkerConfig   `yaml:"worker"`
	Logging  LoggingConfig  `yaml:"logging"`
	Engine   EngineConfig   `yaml:"engine"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Cache    CacheConfig    `yaml:"cache"`
}

// All config structs use string fields only - packages handle conversion during initialization
type ServerConfig struct {
	Port         string `yaml:"port"`
	Environment  string `yaml:"environment"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
	AllowOrigins string `yaml:"allow_origins"`
	RateLimit    string `yaml:"rate_limit"`
	RateBurst    string `yaml:"rate_burst"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	MaxOpenConns    string `yaml:"max_open_conns"`
	MaxIdleConns    string `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	Expiration string `yaml:"expiration"`
}

// AdminConfig holds the operator credentials used to obtain a rebuild token.
// PasswordHash is a bcrypt hash; an empty hash disables operator login.
type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

type WorkerConfig struct {
	RebuildInterval string `yaml:"rebuild_interval"`
	RebuildSchedule string `yaml:"rebuild_schedule"`
}

// LoggingConfig selects level and format; json output is also written to a daily file in Dir
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	ServiceName string `yaml:"service_name"`
	Dir         string `yaml:"dir"`
}

// EngineConfig tunes similarity construction and query serving
type EngineConfig struct {
	Neighbors     string `yaml:"neighbors"`
	MinCoRaters   string `yaml:"min_co_raters"`
	Shrinkage     string `yaml:"shrinkage"`
	Centering     string `yaml:"centering"`
	WaitForIndex  string `yaml:"wait_for_index"`
	QueryTimeout  string `yaml:"query_timeout"`
	MinTitleScore string `yaml:"min_title_score"`
	DefaultN      string `yaml:"default_n"`
}

// CorpusConfig selects where ratings are loaded from: "movielens" or "postgres"
type CorpusConfig struct {
	Source  string `yaml:"source"`
	DataDir string `yaml:"data_dir"`
}

// CacheConfig configures the optional Redis response cache; empty Addr disables it
type CacheConfig struct {
	Addr             string `yaml:"addr"`
	Password         string `yaml:"password"`
	DB               string `yaml:"db"`
	TTL              string `yaml:"ttl"`
	FailureThreshold string `yaml:"failure_threshold"`
	OpenTimeout      string `yaml:"open_timeout"`
}
