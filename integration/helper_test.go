//go:build integration

package integration_test

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/openkcm/daytime/internal/config"
)

var ErrMissingSvrPort = errors.New("server port is missing")

// loadConfig reads the configuration the daemon under test was started with.
// The tests expect it to run in debug mode.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	err := commoncfg.LoadConfig(cfg,
		map[string]any{},
		"..",
	)
	if err != nil {
		return nil, err
	}

	cfg.ApplyFlags(config.Flags{Debug: true})

	return cfg, nil
}

func newGRPCClientConn() (*grpc.ClientConn, error) {
	conf, err := loadConfig()
	if err != nil {
		return nil, err
	}
	port := conf.GRPCServer.Address
	if port == "" {
		return nil, ErrMissingSvrPort
	}
	serverAddr := "localhost" + port

	return grpc.NewClient(
		serverAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
}

// fetchDaytime connects to the daytime listener and reads until the server
// closes the connection.
func fetchDaytime() (string, error) {
	conf, err := loadConfig()
	if err != nil {
		return "", err
	}

	conn, err := net.DialTimeout("tcp", conf.ListenAddress(), 5*time.Second)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	err = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err != nil {
		return "", err
	}

	received, err := io.ReadAll(conn)

	return string(received), err
}
