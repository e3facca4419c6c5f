package configuration

import (
	"encoding/json"
	"os"
)

type MongoConfig struct {
	Uri                string `json:"uri"`
	Database           string `json:"database"`
	MessagesCollection string `json:"messagesCollection"`
	ReceiptsCollection string `json:"receiptsCollection"`
	PresenceCollection string `json:"presenceCollection"`
	ChannelsCollection string `json:"channelsCollection"`
	UsersCollection    string `json:"usersCollection"`
}

type AuthConfig struct {
	JwtSecret       string `json:"jwt_secret"`
	Issuer          string `json:"issuer"`
	TokenTTLMinutes int    `json:"token_ttl_minutes"`
}

type HubConfig struct {
	TypingTTLSeconds int      `json:"typing_ttl_seconds"`
	AllowedOrigins   []string `json:"allowed_origins"`
}

type ServerConfig struct {
	AppPort    int `json:"app_port"`
	SocketPort int `json:"socket_port"`
}

type Config struct {
	Mongo  MongoConfig  `json:"mongo"`
	Auth   AuthConfig   `json:"auth"`
	Hub    HubConfig    `json:"hub"`
	Server ServerConfig `json:"server"`
}

func LoadConfig(config_path string) (*Config, error) {
	file, err := os.ReadFile(config_path)
	if err != nil {
		return nil, err
	}

	var config Config
	err = json.Unmarshal(file, &config)
	if err != nil {
		return nil, err
	}

	return &config, nil
}
