package constants

// ServiceName is reported by the health endpoint and in hOCR metadata.
const ServiceName = "DockerOCR"

// DefaultListenAddress is used when LISTEN_ADDRESS is not set.
const DefaultListenAddress = ":8080"

// DefaultPaddleURL points at the PaddleOCR container of the compose setup.
const DefaultPaddleURL = "http://localhost:5000"

// HistoryLimit caps the number of rows returned by the history endpoint.
const HistoryLimit = 100

// MaxImageWidth is the widest page, in pixels, the layout endpoint accepts.
const MaxImageWidth = 100000
