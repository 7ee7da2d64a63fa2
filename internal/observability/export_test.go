package observability

// Unexported helpers under test.
var (
	BuildResource = buildResource
	SelectSampler = selectSampler
	SamplerRatio  = samplerRatio
)
