package config

// EnvPrefix namespaces every environment variable the backend reads.
const EnvPrefix = "NINEKRUA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "NINEKRUA_DB_DSN"
	EnvDBHost = "NINEKRUA_DB_HOST"
	EnvDBUser = "NINEKRUA_DB_USER"
	EnvDBName = "NINEKRUA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
