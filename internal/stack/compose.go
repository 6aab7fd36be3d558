package stack

import (
	"fmt"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/driftbox/driftboxctl/internal/config"
)

const (
	// ProjectName is the compose project name shared by install and teardown.
	ProjectName = "driftbox"

	// AppPort is the loopback port the app listens on; the reverse proxy is
	// the only public entry point.
	AppPort = 3080

	appImage = "ghcr.io/driftbox/driftbox:latest"
	dbImage  = "postgres:16-alpine"

	dbName = "driftbox"
	dbUser = "driftbox"
)

// Defaults for tunables the operator can adjust in the generated .env.
const (
	defaultWorkerConcurrency = "4"
	defaultDBPoolSize        = "10"
)

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Image       string               `yaml:"image"`
	Restart     string               `yaml:"restart"`
	EnvFile     []string             `yaml:"env_file,omitempty"`
	Environment map[string]string    `yaml:"environment,omitempty"`
	Ports       []string             `yaml:"ports,omitempty"`
	Volumes     []string             `yaml:"volumes,omitempty"`
	DependsOn   map[string]dependsOn `yaml:"depends_on,omitempty"`
	Healthcheck *composeHealthcheck  `yaml:"healthcheck,omitempty"`
}

type dependsOn struct {
	Condition string `yaml:"condition"`
}

type composeHealthcheck struct {
	Test     []string `yaml:"test"`
	Interval string   `yaml:"interval"`
	Timeout  string   `yaml:"timeout"`
	Retries  int      `yaml:"retries"`
}

// renderCompose encodes the two-service stack definition. Secrets never appear
// literally: the engine interpolates ${...} references from the adjacent .env.
func renderCompose(cfg *config.Config) ([]byte, error) {
	def := composeFile{
		Services: map[string]composeService{
			"app": {
				Image:   appImage,
				Restart: "unless-stopped",
				EnvFile: []string{"./" + envFileName},
				Environment: map[string]string{
					"PORT":         fmt.Sprintf("%d", AppPort),
					"DATABASE_URL": fmt.Sprintf("postgres://%s:${DB_PASSWORD}@db:5432/%s", dbUser, dbName),
				},
				Ports:   []string{fmt.Sprintf("127.0.0.1:%d:%d", AppPort, AppPort)},
				Volumes: []string{"./data/uploads:/app/uploads"},
				DependsOn: map[string]dependsOn{
					"db": {Condition: "service_healthy"},
				},
			},
			"db": {
				Image:   dbImage,
				Restart: "unless-stopped",
				Environment: map[string]string{
					"POSTGRES_DB":       dbName,
					"POSTGRES_USER":     dbUser,
					"POSTGRES_PASSWORD": "${DB_PASSWORD}",
				},
				Volumes: []string{"./data/postgres:/var/lib/postgresql/data"},
				Healthcheck: &composeHealthcheck{
					Test:     []string{"CMD-SHELL", fmt.Sprintf("pg_isready -U %s -d %s", dbUser, dbName)},
					Interval: "5s",
					Timeout:  "3s",
					Retries:  10,
				},
			},
		},
	}

	return yaml.Marshal(def)
}

// renderEnvFile marshals the secrets and operator-tunable settings consumed by
// the app service and by compose interpolation.
func renderEnvFile(cfg *config.Config) ([]byte, error) {
	values := map[string]string{
		"DOMAIN":             cfg.Domain,
		"ENCRYPTION_KEY":     cfg.EncryptionKey,
		"DB_PASSWORD":        cfg.DBPassword,
		"AI_BASE_URL":        cfg.AIBaseURL,
		"WORKER_CONCURRENCY": defaultWorkerConcurrency,
		"DB_POOL_SIZE":       defaultDBPoolSize,
	}
	if cfg.AIAPIKey != "" {
		values["AI_API_KEY"] = cfg.AIAPIKey
	}

	out, err := godotenv.Marshal(values)
	if err != nil {
		return nil, err
	}
	return []byte(out + "\n"), nil
}
