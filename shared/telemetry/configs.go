package telemetry

// BookingServiceConfig is the telemetry configuration for the booking service
var BookingServiceConfig = Config{
	ServiceName:    "booking-service",
	ServiceVersion: "1.0.0",
}

// WithOTLPEndpoint sets the OTLP endpoint for a config
func (c Config) WithOTLPEndpoint(endpoint string) Config {
	c.OTLPEndpoint = endpoint
	return c
}

// WithServiceName sets the service name for a config
func (c Config) WithServiceName(name string) Config {
	c.ServiceName = name
	return c
}
