package configuration

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type (
	Properties struct {
		LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
		LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

		Server    HttpServerProperties `envPrefix:"HTTP_"`
		B2        B2Properties         `envPrefix:"B2_"`
		Storage   StorageProperties    `envPrefix:"STORAGE_"`
		CredCache CredCacheProperties  `envPrefix:"CREDCACHE_"`
		Sheet     SheetProperties      `envPrefix:"SHEET_"`
		Image     ImageProperties      `envPrefix:"IMAGE_"`
	}

	HttpServerProperties struct {
		Port           string        `env:"PORT" envDefault:"3000"`
		ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
		StaticDir      string        `env:"STATIC_DIR" envDefault:"web/public"`
		MaxMultipartMB int64         `env:"MAX_MULTIPART_MB" envDefault:"64"`
		CorsOrigins    []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
		Pprof          bool          `env:"PPROF" envDefault:"false"`
	}

	// B2Properties holds the Backblaze account used by both upload backends.
	B2Properties struct {
		AccountID      string        `env:"ACCOUNT_ID"`
		ApplicationKey string        `env:"APPLICATION_KEY"`
		BucketID       string        `env:"BUCKET_ID"`
		BucketName     string        `env:"BUCKET_NAME"`
		AuthURL        string        `env:"AUTH_URL" envDefault:"https://api.backblazeb2.com"`
		UploadTimeout  time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"60s"`
		TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"23h"`
		S3Endpoint     string        `env:"S3_ENDPOINT" envDefault:"s3.us-west-004.backblazeb2.com"`
		S3Region       string        `env:"S3_REGION" envDefault:"us-west-004"`
	}

	StorageProperties struct {
		Backend    string `env:"BACKEND" envDefault:"b2"`
		CDNBaseURL string `env:"CDN_BASE_URL" envDefault:"https://leakurge.b-cdn.net"`
	}

	CredCacheProperties struct {
		Backend       string `env:"BACKEND" envDefault:"memory"`
		RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		RedisPassword string `env:"REDIS_PASSWORD"`
		RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
		RedisKey      string `env:"REDIS_KEY" envDefault:"feedserv:b2:upload-credential"`
	}

	SheetProperties struct {
		Backend         string `env:"BACKEND" envDefault:"sheets"`
		SpreadsheetID   string `env:"SPREADSHEET_ID"`
		Name            string `env:"NAME"`
		CredentialsFile string `env:"CREDENTIALS_FILE"`
		CredentialsJSON string `env:"CREDENTIALS_JSON"`
		SQLitePath      string `env:"SQLITE_PATH" envDefault:"./feedserv.db"`
		Timezone        string `env:"TIMEZONE" envDefault:"Local"`
		Author          string `env:"AUTHOR" envDefault:"Dashboard User"`
	}

	ImageProperties struct {
		MaxDimension   int     `env:"MAX_DIMENSION" envDefault:"1920"`
		MaxPixels      int64   `env:"MAX_PIXELS" envDefault:"268402689"`
		WebPQuality    float32 `env:"WEBP_QUALITY" envDefault:"85"`
		WebPEffort     int     `env:"WEBP_EFFORT" envDefault:"6"`
		PNGCompression int     `env:"PNG_COMPRESSION" envDefault:"6"`
	}
)

const (
	StorageB2 = "b2"
	StorageS3 = "s3"

	CredCacheMemory = "memory"
	CredCacheRedis  = "redis"

	SheetSheets = "sheets"
	SheetSQLite = "sqlite"
	SheetMemory = "memory"
)

// ReadProperties reads the environment and validates it for serving.
func ReadProperties() (*Properties, error) {
	config, err := ParseProperties()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ParseProperties reads the environment without validation. CLI commands
// that touch a single component check only what they use.
func ParseProperties() (*Properties, error) {
	config := &Properties{}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}
	return config, nil
}

// Validate rejects combinations the server cannot start with.
func (p *Properties) Validate() error {
	switch p.Storage.Backend {
	case StorageB2:
		if p.B2.AccountID == "" || p.B2.ApplicationKey == "" {
			return fmt.Errorf("b2 storage requires B2_ACCOUNT_ID and B2_APPLICATION_KEY")
		}
		if p.B2.BucketID == "" {
			return fmt.Errorf("b2 storage requires B2_BUCKET_ID")
		}
	case StorageS3:
		if p.B2.AccountID == "" || p.B2.ApplicationKey == "" || p.B2.BucketName == "" {
			return fmt.Errorf("s3 storage requires B2_ACCOUNT_ID, B2_APPLICATION_KEY and B2_BUCKET_NAME")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", p.Storage.Backend)
	}

	switch p.CredCache.Backend {
	case CredCacheMemory, CredCacheRedis:
	default:
		return fmt.Errorf("unknown credential cache backend: %q", p.CredCache.Backend)
	}

	switch p.Sheet.Backend {
	case SheetSheets:
		if p.Sheet.SpreadsheetID == "" {
			return fmt.Errorf("sheets backend requires SHEET_SPREADSHEET_ID")
		}
		if p.Sheet.CredentialsFile == "" && p.Sheet.CredentialsJSON == "" {
			return fmt.Errorf("sheets backend requires SHEET_CREDENTIALS_FILE or SHEET_CREDENTIALS_JSON")
		}
	case SheetSQLite, SheetMemory:
	default:
		return fmt.Errorf("unknown sheet backend: %q", p.Sheet.Backend)
	}

	if p.Image.MaxDimension <= 0 {
		return fmt.Errorf("invalid max image dimension: %d", p.Image.MaxDimension)
	}
	if p.B2.TokenTTL <= 0 {
		return fmt.Errorf("invalid token ttl: %s", p.B2.TokenTTL)
	}
	if _, err := time.LoadLocation(p.Sheet.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", p.Sheet.Timezone, err)
	}
	return nil
}

// Location returns the zone entry timestamps are rendered in.
func (s SheetProperties) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
