package config

// Gnosis chain sDAI/EURe stable pool.
const (
	DefaultVault         = "0xBA12222222228d8Ba445958a75a0704d566BF2C8"
	DefaultPoolID        = "0xdd439304a77f54b1f7854751ac1169b279591ef7000000000000000000000064"
	DefaultTokenA        = "0xaf204776c7245bF4147c2612BF6e5972Ee483701"
	DefaultTokenB        = "0xcB444e90D8198415266c6a2724b7900fb12FC56E"
	DefaultRateProviderA = "0x89C80A4540A00b5270347E02e2E144c71da2EceD"
	DefaultRateProviderB = "0xE7511f6e5C593007eA8A7F52af4B066333765e03"
	// DefaultAmp is the amplification parameter already scaled by 1000.
	DefaultAmp = "1000000"
)
