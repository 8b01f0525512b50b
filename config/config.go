package config

import "time"

type Config struct {
	Web      Web
	Cors     Cors
	DB       DB
	Auth     Auth
	Kiosk    Kiosk
	Checkout Checkout
	Kafka    Kafka
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:pos"`
	MaxIdleConns int    `conf:"default:5"`
	MaxOpenConns int    `conf:"default:25"`
	DisableTLS   bool   `conf:"default:true"`
	Migrate      bool   `conf:"default:true"`
}

type Auth struct {
	JWTSecret string `conf:"required,mask"`
}

// Kiosk tunes the unattended-terminal session lifecycle.
type Kiosk struct {
	SessionTimeout time.Duration `conf:"default:180s"`
	InitBurst      int           `conf:"default:5"`
	InitEvery      time.Duration `conf:"default:2s"`
	InitExpiry     time.Duration `conf:"default:10m"`
}

type Checkout struct {
	LockTimeout time.Duration `conf:"default:5s"`
	SortLocks   bool          `conf:"default:false"`
	OrderPrefix string        `conf:"default:ORD"`
}

// Kafka publishing is disabled when Brokers is empty.
type Kafka struct {
	Brokers string `conf:"help:comma separated broker addresses"`
	Topic   string `conf:"default:orders"`
}
