package bootstrap

import (
	"log"
	"time"

	"github.com/spf13/viper"

	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_models"
)

// Env 应用环境配置，从.env读取
// 投递可靠性参数（重试/熔断/停滞）留空时采用内置默认值
type Env struct {
	AppEnv         string `mapstructure:"APP_ENV"`
	ServerAddress  string `mapstructure:"SERVER_ADDRESS"`
	ContextTimeout int    `mapstructure:"CONTEXT_TIMEOUT"`

	DBHost string `mapstructure:"DB_HOST"`
	DBPort string `mapstructure:"DB_PORT"`
	DBUser string `mapstructure:"DB_USER"`
	DBPass string `mapstructure:"DB_PASS"`
	DBName string `mapstructure:"DB_NAME"`

	OriginBaseURL string `mapstructure:"ORIGIN_BASE_URL"`
	OriginToken   string `mapstructure:"ORIGIN_TOKEN"`

	LibraryScanTimeout int `mapstructure:"LIBRARY_SCAN_TIMEOUT"` // 分钟

	RetryMaxAttempts       int     `mapstructure:"RETRY_MAX_ATTEMPTS"`
	RetryBaseDelayMs       int     `mapstructure:"RETRY_BASE_DELAY_MS"`
	RetryMaxDelayMs        int     `mapstructure:"RETRY_MAX_DELAY_MS"`
	RetryPerAttemptTimeout int     `mapstructure:"RETRY_PER_ATTEMPT_TIMEOUT"` // 秒
	RetryOverallTimeout    int     `mapstructure:"RETRY_OVERALL_TIMEOUT"`     // 秒
	RetryJitterFactor      float64 `mapstructure:"RETRY_JITTER_FACTOR"`

	BreakerFailureThreshold int `mapstructure:"BREAKER_FAILURE_THRESHOLD"`
	BreakerResetTimeout     int `mapstructure:"BREAKER_RESET_TIMEOUT"` // 秒

	StallDetectionDelay int `mapstructure:"STALL_DETECTION_DELAY"` // 秒
	StallRecoveryWindow int `mapstructure:"STALL_RECOVERY_WINDOW"` // 秒
	StallPollIntervalMs int `mapstructure:"STALL_POLL_INTERVAL_MS"`

	CrossfadeMs int `mapstructure:"CROSSFADE_MS"`
}

func NewEnv() *Env {
	env := Env{}
	viper.SetConfigFile(".env")

	err := viper.ReadInConfig()
	if err != nil {
		log.Fatal("找不到.env配置文件: ", err)
	}

	err = viper.Unmarshal(&env)
	if err != nil {
		log.Fatal("环境配置解析失败: ", err)
	}

	if env.AppEnv == "development" {
		log.Println("当前运行于开发环境")
	}

	return &env
}

// RetryPolicy 重试参数，未配置的字段回落到默认值
func (env *Env) RetryPolicy() playback_models.RetryPolicy {
	policy := playback_models.DefaultRetryPolicy()
	if env.RetryMaxAttempts > 0 {
		policy.MaxAttempts = env.RetryMaxAttempts
	}
	if env.RetryBaseDelayMs > 0 {
		policy.BaseDelay = time.Duration(env.RetryBaseDelayMs) * time.Millisecond
	}
	if env.RetryMaxDelayMs > 0 {
		policy.MaxDelay = time.Duration(env.RetryMaxDelayMs) * time.Millisecond
	}
	if env.RetryPerAttemptTimeout > 0 {
		policy.PerAttemptTimeout = time.Duration(env.RetryPerAttemptTimeout) * time.Second
	}
	if env.RetryOverallTimeout > 0 {
		policy.OverallTimeout = time.Duration(env.RetryOverallTimeout) * time.Second
	}
	if env.RetryJitterFactor > 0 {
		policy.JitterFactor = env.RetryJitterFactor
	}
	return policy
}

// BreakerConfig 熔断参数，未配置的字段回落到默认值
func (env *Env) BreakerConfig() playback_models.CircuitBreakerConfig {
	config := playback_models.DefaultCircuitBreakerConfig()
	if env.BreakerFailureThreshold > 0 {
		config.FailureThreshold = env.BreakerFailureThreshold
	}
	if env.BreakerResetTimeout > 0 {
		config.ResetTimeout = time.Duration(env.BreakerResetTimeout) * time.Second
	}
	return config
}

// StallPolicy 停滞参数，未配置的字段回落到默认值
func (env *Env) StallPolicy() playback_models.StallPolicy {
	policy := playback_models.DefaultStallPolicy()
	if env.StallDetectionDelay > 0 {
		policy.DetectionDelay = time.Duration(env.StallDetectionDelay) * time.Second
	}
	if env.StallRecoveryWindow > 0 {
		policy.RecoveryTimeout = time.Duration(env.StallRecoveryWindow) * time.Second
	}
	if env.StallPollIntervalMs > 0 {
		policy.PollInterval = time.Duration(env.StallPollIntervalMs) * time.Millisecond
	}
	return policy
}

// Crossfade 轨道边界交叉淡入淡出时长，默认1秒
func (env *Env) Crossfade() time.Duration {
	if env.CrossfadeMs > 0 {
		return time.Duration(env.CrossfadeMs) * time.Millisecond
	}
	return time.Second
}
