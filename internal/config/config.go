package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/scheduler"
)

type SolverConfig struct {
	UnderstaffWeight int64 `env:"UNDERSTAFF_WEIGHT" envDefault:"2"`
	OverstaffWeight  int64 `env:"OVERSTAFF_WEIGHT" envDefault:"1"`
	TimeLimit        int   `env:"TIME_LIMIT" envDefault:"0"` // 秒，0 表示不限制
	Seed             int64 `env:"SEED" envDefault:"1"`
	NumWorkers       int   `env:"NUM_WORKERS" envDefault:"8"`
}

// Parameters 转换为 scheduler 的求解参数
func (sc *SolverConfig) Parameters() *scheduler.Parameters {
	return &scheduler.Parameters{
		UnderstaffWeight: sc.UnderstaffWeight,
		OverstaffWeight:  sc.OverstaffWeight,
		TimeLimit:        time.Duration(sc.TimeLimit) * time.Second,
		Seed:             sc.Seed,
		NumWorkers:       sc.NumWorkers,
	}
}

type JWTConfig struct {
	Expiration int    `env:"EXPIRATION" envDefault:"336"` // 小时，14 天
	Secret     string `env:"SECRET,required"`
}

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"120"` // 同步求解可能比较慢
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
		MaxUploadSize   int64  `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10 MiB
	} `envPrefix:"SERVER_"`
	CORS struct {
		AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:5173"`
	} `envPrefix:"CORS_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	JWT         JWTConfig `envPrefix:"JWT_"`
	Email struct {
		SMTP struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
		TemplateDir string `env:"TEMPLATE_DIR" envDefault:"./templates"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
		Prefetch       int    `env:"PREFETCH" envDefault:"1"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host           string `env:"HOST" envDefault:"localhost"`
		Port           int    `env:"PORT" envDefault:"6379"`
		Password       string `env:"PASSWORD,required"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	Cache struct {
		ResultExpiration int `env:"RESULT_EXPIRATION" envDefault:"1440"` // 分钟
		OperationTimeout int `env:"OPERATION_TIMEOUT" envDefault:"3"`
		LocalSize        int `env:"LOCAL_SIZE" envDefault:"128"`
	} `envPrefix:"CACHE_"`
	Solver SolverConfig `envPrefix:"SOLVER_"`
}

// loadDotEnv 如果当前目录下有 .env 文件则先加载它，已有的环境变量不会被覆盖
func loadDotEnv() {
	_ = godotenv.Load()
}

func firstError(err error) error {
	aggErr := env.AggregateError{}
	if ok := errors.As(err, &aggErr); ok && len(aggErr.Errors) > 0 {
		// 只返回第一个错误使得日志更清晰
		return aggErr.Errors[0]
	}
	return err
}

func LoadConfig() (*Config, error) {
	loadDotEnv()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, firstError(err)
	}

	return cfg, nil
}

// LoadSolverConfig 只加载求解相关的配置，供不依赖数据库等基础设施的命令行使用
func LoadSolverConfig() (*SolverConfig, error) {
	loadDotEnv()

	cfg := &SolverConfig{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "SOLVER_"}); err != nil {
		return nil, firstError(err)
	}

	return cfg, nil
}

// LoadJWTConfig 只加载令牌相关的配置，命令行签发令牌时使用
func LoadJWTConfig() (*JWTConfig, error) {
	loadDotEnv()

	cfg := &JWTConfig{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "JWT_"}); err != nil {
		return nil, firstError(err)
	}

	return cfg, nil
}
