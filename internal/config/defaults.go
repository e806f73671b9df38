package config

const (
	defaultParityRedundancy = 20
	defaultParityRecovery   = 1
	defaultISOApplicationID = "CD Ballooner"
	defaultISOSystemID      = "LINUX"
	defaultECCMethod        = "RS02"
	defaultECCMedium        = "CD"
	defaultCatalogPath      = "~/.local/share/ballooncd/catalog.db"
	defaultLogFormat        = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Parity: Parity{
			RedundancyPercent: defaultParityRedundancy,
			RecoveryFiles:     defaultParityRecovery,
		},
		ISO: ISO{
			ApplicationID: defaultISOApplicationID,
			SystemID:      defaultISOSystemID,
		},
		ECC: ECC{
			Method: defaultECCMethod,
			Medium: defaultECCMedium,
		},
		Catalog: Catalog{
			Enabled: true,
			Path:    defaultCatalogPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
		},
	}
}
