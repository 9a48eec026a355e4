package config

import "time"

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type Config struct {
	RedisConfig    RedisConfig
	ListenerConfig ListenerConfig
	EngineConfig   EngineConfig
	AuditConfig    AuditConfig
	HttpPort       int
	StorageType    StorageType
	LogLevel       string
}

type AuditConfig struct {
	FileName      string
	FlushInterval time.Duration
}

type RedisConfig struct {
	Addrs     []string
	Namespace string
	Password  string
	PoolSize  int
}

type ListenerConfig struct {
	Channel           string
	DedupeTTL         time.Duration
	ReconnectBase     time.Duration
	ReconnectMax      time.Duration
	ReconnectAttempts int
}

type EngineConfig struct {
	Partitions         int
	EvalConcurrency    int
	ActionConcurrency  int
	EventTimeout       time.Duration
	QueryTimeout       time.Duration
	WebhookTimeout     time.Duration
	DefinitionCacheTTL time.Duration
	UpdatesBuffer      int
}
