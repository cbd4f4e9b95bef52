package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type AppConfig struct {
	ControllerURL   string
	DeviceID        string
	PollInterval    time.Duration
	FetchTimeout    time.Duration
	ReportTimeout   time.Duration
	HandlerTimeout  time.Duration
	ShellTimeout    time.Duration
	TransferTimeout time.Duration
	ShutdownTimeout time.Duration
	Workers         int
	DownloadDir     string
	LogPath         string
	LogLevel        string
	DBDriver        string
	DBPath          string
	RedisAddr       string
	RedisChannel    string
}

var (
	mu  sync.RWMutex
	cfg AppConfig
	v   *viper.Viper
)

func dataDir() string { return filepath.Join(os.TempDir(), "command-agent") }

// Init loads path (missing file is fine, defaults apply) and stores the snapshot returned by Get.
func Init(path string) AppConfig {
	nv := viper.New()
	nv.SetConfigFile(path)
	nv.SetConfigType("yaml")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	// defaults
	nv.SetDefault("agent.controller.url", "http://127.0.0.1:5000")
	nv.SetDefault("agent.device_id", "")
	nv.SetDefault("agent.poll_interval", 10*time.Second)
	nv.SetDefault("agent.fetch_timeout", 30*time.Second)
	nv.SetDefault("agent.report_timeout", 30*time.Second)
	nv.SetDefault("agent.handler_timeout", 60*time.Second)
	nv.SetDefault("agent.shell_timeout", 60*time.Second)
	nv.SetDefault("agent.transfer_timeout", 10*time.Minute)
	nv.SetDefault("agent.shutdown_timeout", 15*time.Second)
	nv.SetDefault("agent.workers", 16)
	nv.SetDefault("agent.download_dir", filepath.Join(dataDir(), "downloads"))
	nv.SetDefault("agent.log_level", "info")
	nv.SetDefault("agent.db_driver", "sqlite")
	nv.SetDefault("agent.db_path", filepath.Join(dataDir(), "agent.db"))
	nv.SetDefault("agent.redis.channel", "agent:signals")
	_ = nv.ReadInConfig()

	c := load(nv)
	mu.Lock()
	v, cfg = nv, c
	mu.Unlock()
	return c
}

func load(v *viper.Viper) AppConfig {
	c := AppConfig{
		ControllerURL:   strings.TrimRight(v.GetString("agent.controller.url"), "/"),
		DeviceID:        strings.TrimSpace(v.GetString("agent.device_id")),
		PollInterval:    v.GetDuration("agent.poll_interval"),
		FetchTimeout:    v.GetDuration("agent.fetch_timeout"),
		ReportTimeout:   v.GetDuration("agent.report_timeout"),
		HandlerTimeout:  v.GetDuration("agent.handler_timeout"),
		ShellTimeout:    v.GetDuration("agent.shell_timeout"),
		TransferTimeout: v.GetDuration("agent.transfer_timeout"),
		ShutdownTimeout: v.GetDuration("agent.shutdown_timeout"),
		Workers:         v.GetInt("agent.workers"),
		DownloadDir:     v.GetString("agent.download_dir"),
		LogPath:         v.GetString("agent.log_path"),
		LogLevel:        v.GetString("agent.log_level"),
		DBDriver:        strings.ToLower(v.GetString("agent.db_driver")),
		DBPath:          v.GetString("agent.db_path"),
		RedisAddr:       v.GetString("agent.redis.addr"),
		RedisChannel:    v.GetString("agent.redis.channel"),
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return c
}

func Get() AppConfig {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch reloads the snapshot whenever the config file changes and passes it to onChange.
// Only settings read per use (log level) take effect without a restart.
func Watch(onChange func(AppConfig)) {
	mu.RLock()
	wv := v
	mu.RUnlock()
	if wv == nil {
		return
	}
	wv.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		c := load(wv)
		mu.Lock()
		cfg = c
		mu.Unlock()
		if onChange != nil {
			onChange(c)
		}
	})
	wv.WatchConfig()
}
