package mailer

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestNewRequiresServer(t *testing.T) {
	_, err := New(SmtpConfig{EmailAddress: "bot@example.com"})
	require.Error(t, err)

	m, err := New(SmtpConfig{Server: "localhost", EmailAddress: "bot@example.com"})
	require.NoError(t, err)
	require.Equal(t, "localhost:587", m.addr())
}

func TestSendNoRecipients(t *testing.T) {
	m, err := New(SmtpConfig{Server: "localhost", EmailAddress: "bot@example.com"})
	require.NoError(t, err)
	require.Error(t, m.Send(context.Background(), Mail{Subject: "x"}))
}

func TestSend(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	smtpServer, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "haravich/fake-smtp-server",
				ExposedPorts: []string{"1025/tcp", "1080/tcp"},
				WaitingFor:   wait.ForLog("smtp://0.0.0.0:1025"),
			},
		},
	)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, smtpServer.Terminate(ctx))
	}()

	host, err := smtpServer.Host(ctx)
	require.NoError(t, err)
	smtpPort, err := smtpServer.MappedPort(ctx, "1025")
	require.NoError(t, err)
	webPort, err := smtpServer.MappedPort(ctx, "1080")
	require.NoError(t, err)

	m, err := New(SmtpConfig{
		Server:       host,
		Port:         smtpPort.Int(),
		EmailAddress: "bot@example.com",
		Password:     "default",
	})
	require.NoError(t, err)

	err = m.Send(ctx, Mail{
		To:      []string{"ops@example.com"},
		Subject: "Radares móviles",
		Text:    "No hay radares móviles planificados para hoy.",
		Attachments: []Attachment{{
			FileName:    "radar.png",
			ContentType: "image/png",
			Content:     []byte{0x89, 'P', 'N', 'G'},
		}},
	})
	require.NoError(t, err)

	res, err := resty.New().R().
		Get(fmt.Sprintf("http://%s:%s/messages/1.plain", host, webPort.Port()))
	require.NoError(t, err)
	require.Contains(t, res.String(), "No hay radares")
}
