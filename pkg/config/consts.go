package config

const (
	EnvPrefix = "zentik"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvSyncEndpoint = "ZENTIK_SYNC_ENDPOINT"
)
