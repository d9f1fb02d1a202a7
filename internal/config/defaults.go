package config

// DefaultUserAgents provides a list of common user agents
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// DefaultParts are the part searches the car-part browser run iterates over
var DefaultParts = []string{
	"A Pillar",
	"Fender",
	"Headlight Housing",
	"Steering Wheel",
	"Bumper Cover (Front)",
	"Mirror, Door",
}

// DefaultLKQLocations is used when the locations file cannot be read
var DefaultLKQLocations = []string{
	"https://www.lkqpickyourpart.com/parts/huntsville-1223/",
	"https://www.lkqpickyourpart.com/parts/monrovia-1281/",
	"https://www.lkqpickyourpart.com/parts/anaheim-1265/",
}
