package config

type SSH struct {
	Addr        string `json:"addr" env:"ADDR"`
	HostKeyFile string `json:"host_key_file" env:"HOST_KEY_FILE"`
}

func (s SSH) Enabled() bool {
	return s.Addr != ""
}
