package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "localhostはSSL無効",
			cfg:  Config{Host: "localhost", Port: 5432, UserName: "u", Password: "p", DBName: "d"},
			want: "host=localhost port=5432 user=u password=p dbname=d sslmode=disable",
		},
		{
			name: "リモートはSSL必須",
			cfg:  Config{Host: "db.example.com", Port: 5432, UserName: "u", Password: "p", DBName: "d"},
			want: "host=db.example.com port=5432 user=u password=p dbname=d sslmode=require",
		},
		{
			name: "明示したSSLモードを優先",
			cfg:  Config{Host: "db.example.com", Port: 6543, UserName: "u", Password: "p", DBName: "d", SSLMode: "verify-full"},
			want: "host=db.example.com port=6543 user=u password=p dbname=d sslmode=verify-full",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
