package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.ApiService/middleware"
	clock "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Clock"
	config "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Config"
	logger "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Logger"
	icsmodels "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Models"
	protocol "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Protocol"
	icssync "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Sync"
	telemetry "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Telemetry"
)

// Terminals send attendance logs and photos in one request
const maxTerminalBody = 8 << 20

const ackBody = "OK"

// IclockController serves the terminal-facing /iclock protocol
type IclockController struct {
	engine   *icssync.Engine
	reporter *telemetry.Reporter
	options  config.ProtocolConfig
	clock    clock.Clock
	logger   *logger.Logger
}

// NewIclockController creates a new terminal protocol controller
func NewIclockController(engine *icssync.Engine, reporter *telemetry.Reporter, options config.ProtocolConfig, clk clock.Clock, logger *logger.Logger) *IclockController {
	return &IclockController{
		engine:   engine,
		reporter: reporter,
		options:  options,
		clock:    clk,
		logger:   logger,
	}
}

// RegisterRoutes registers the terminal routes with Gin
func (c *IclockController) RegisterRoutes(router *gin.Engine) {
	iclock := router.Group("/iclock")
	{
		iclock.GET("/cdata", c.Handshake)
		iclock.POST("/cdata", c.Upload)
		iclock.GET("/getrequest", c.GetRequest)
		iclock.POST("/devicecmd", c.DeviceCmd)
	}
}

func (c *IclockController) Handshake(ctx *gin.Context) {
	serial := ctx.Query("SN")
	log := middleware.GetLogger(ctx, c.logger).WithSerial(serial)

	if _, err := c.engine.Handshake(ctx.Request.Context(), serial); err != nil {
		c.fail(ctx, log, err)
		return
	}

	log.Debug("Handshake served")
	c.respond(ctx, http.StatusOK, protocol.HandshakeBody(serial, c.options))
}

func (c *IclockController) GetRequest(ctx *gin.Context) {
	serial := ctx.Query("SN")
	log := middleware.GetLogger(ctx, c.logger).WithSerial(serial)

	command, ok, err := c.engine.Dispatch(ctx.Request.Context(), serial)
	if err != nil {
		c.fail(ctx, log, err)
		return
	}
	if !ok {
		c.respond(ctx, http.StatusOK, "")
		return
	}

	log.WithField("command", command).Info("Command sent to terminal")
	c.respond(ctx, http.StatusOK, command)
}

// Upload accepts attendance and operation log pushes. The records are only
// forwarded to telemetry.
func (c *IclockController) Upload(ctx *gin.Context) {
	serial := ctx.Query("SN")
	log := middleware.GetLogger(ctx, c.logger).WithSerial(serial)

	body, err := c.readBody(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to read upload body")
	}

	if serial == "" {
		log.Warn("Upload without SN, not forwarded")
	} else {
		c.reporter.Upload(ctx.Request.Context(), icsmodels.UploadEvent{
			Serial:     serial,
			Table:      ctx.Query("table"),
			Stamp:      ctx.Query("Stamp"),
			Records:    protocol.ParseUpload(body),
			ReceivedAt: c.clock.Now(),
		})
	}

	c.respond(ctx, http.StatusOK, ackBody)
}

// DeviceCmd accepts command results. Decoding is best effort and never fails
// the response.
func (c *IclockController) DeviceCmd(ctx *gin.Context) {
	serial := ctx.Query("SN")
	log := middleware.GetLogger(ctx, c.logger).WithSerial(serial)

	body, err := c.readBody(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to read acknowledgment body")
	}

	reports, err := protocol.ParseAck(body)
	if err != nil {
		log.WithError(err).Warn("Malformed acknowledgment")
	}

	event := icsmodels.AckEvent{
		Serial:     serial,
		CmdStatus:  ctx.GetHeader("Cmd-Status"),
		Reports:    reports,
		Raw:        body,
		ReceivedAt: c.clock.Now(),
	}
	log.Logger.Info().
		Str("cmd_status", event.CmdStatus).
		Int("reports", len(reports)).
		Msg("Acknowledgment received")

	if serial != "" {
		c.reporter.Ack(ctx.Request.Context(), event)
	}

	c.respond(ctx, http.StatusOK, ackBody)
}

func (c *IclockController) readBody(ctx *gin.Context) (string, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxTerminalBody))
	return string(raw), err
}

func (c *IclockController) respond(ctx *gin.Context, status int, body string) {
	protocol.WriteHeaders(ctx.Writer.Header(), c.clock.Now(), c.options.ServerHeader)
	ctx.Data(status, protocol.ContentType, []byte(body))
}

func (c *IclockController) fail(ctx *gin.Context, log *logger.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusBadRequest {
		log.WithError(err).Warn("Rejected terminal request")
		c.respond(ctx, status, err.Error())
		return
	}

	log.ErrorWithError(err, "Terminal request failed")
	_ = ctx.Error(err)
	c.respond(ctx, status, "Internal Server Error")
}
