package controllers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.ApiService/middleware"
	clock "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Clock"
	logger "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Logger"
	icsmodels "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Models"
	protocol "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Protocol"
	interfaces "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Interfaces"
	icssync "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Sync"
)

// AdminController handles administrative requests: queuing commands,
// registering users on terminals and inspecting the device registry and
// user directory
type AdminController struct {
	engine   *icssync.Engine
	registry interfaces.DeviceRegistry
	users    interfaces.UserDirectory
	sweeper  *icssync.Sweeper
	ids      *protocol.IDGenerator
	clock    clock.Clock
	logger   *logger.Logger
	auth     gin.HandlerFunc
}

// NewAdminController creates a new admin controller
func NewAdminController(engine *icssync.Engine, registry interfaces.DeviceRegistry, users interfaces.UserDirectory, sweeper *icssync.Sweeper, ids *protocol.IDGenerator, clk clock.Clock, logger *logger.Logger, auth gin.HandlerFunc) *AdminController {
	return &AdminController{
		engine:   engine,
		registry: registry,
		users:    users,
		sweeper:  sweeper,
		ids:      ids,
		clock:    clk,
		logger:   logger,
		auth:     auth,
	}
}

// RegisterRoutes registers the admin routes with Gin
func (c *AdminController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api", c.auth)
	{
		api.POST("/commands", c.EnqueueCommands)
		api.GET("/commands", c.ListCommands)

		api.POST("/users", c.RegisterUser)
		api.GET("/users", c.ListUsers)
		api.DELETE("/users/:pin", c.DeleteUser)

		api.GET("/devices", c.ListDevices)
		api.GET("/devices/:serial", c.GetDevice)

		api.POST("/sweep", c.Sweep)
	}
}

type EnqueueCommandsRequest struct {
	Command  string   `json:"command"`
	Commands []string `json:"commands"`
}

type RegisterUserRequest struct {
	Pin   string `json:"pin" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Photo string `json:"photo"` // base64 face template, optional
}

func (c *AdminController) EnqueueCommands(ctx *gin.Context) {
	var req EnqueueCommandsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	commands := req.Commands
	if req.Command != "" {
		commands = append([]string{req.Command}, commands...)
	}
	if len(commands) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "command is required"})
		return
	}

	c.enqueue(ctx, http.StatusCreated, gin.H{"queued": len(commands), "commands": commands}, commands...)
}

func (c *AdminController) ListCommands(ctx *gin.Context) {
	partition, err := c.engine.Backlog(ctx.Request.Context())
	if err != nil {
		c.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"day":      clock.DayKey(c.clock.Now()),
		"commands": partition,
	})
}

func (c *AdminController) RegisterUser(ctx *gin.Context) {
	var req RegisterUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validField(req.Pin) || strings.Contains(req.Pin, " ") {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid pin"})
		return
	}
	if !validField(req.Name) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid name"})
		return
	}

	commands := []string{protocol.UserCommand(c.ids.Next(), req.Pin, req.Name)}

	if req.Photo != "" {
		template := stripDataURL(req.Photo)
		decoded, err := base64.StdEncoding.DecodeString(template)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "photo must be base64 encoded"})
			return
		}
		commands = append(commands, protocol.BiodataCommand(c.ids.Next(), req.Pin, len(decoded), template))
	}

	if err := c.engine.Enqueue(ctx.Request.Context(), commands...); err != nil {
		c.fail(ctx, err)
		return
	}

	user := icsmodels.User{
		Pin:          req.Pin,
		Name:         req.Name,
		HasPhoto:     req.Photo != "",
		RegisteredAt: c.clock.Now(),
	}
	if err := c.users.PutUser(ctx.Request.Context(), user); err != nil {
		c.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"pin": req.Pin, "commands": commands, "user": user})
}

func (c *AdminController) ListUsers(ctx *gin.Context) {
	users, err := c.users.ListUsers(ctx.Request.Context())
	if err != nil {
		c.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

func (c *AdminController) DeleteUser(ctx *gin.Context) {
	pin := ctx.Param("pin")
	if !validField(pin) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid pin"})
		return
	}

	// the terminal may hold users this server never registered, so the
	// delete command is queued even for unknown PINs
	command := protocol.DeleteUserCommand(c.ids.Next(), pin)
	if err := c.engine.Enqueue(ctx.Request.Context(), command); err != nil {
		c.fail(ctx, err)
		return
	}

	removed, err := c.users.DeleteUser(ctx.Request.Context(), pin)
	if err != nil {
		c.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"pin": pin, "commands": []string{command}, "removed": removed})
}

func (c *AdminController) ListDevices(ctx *gin.Context) {
	devices, err := c.registry.ListDevices(ctx.Request.Context())
	if err != nil {
		c.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"devices": devices,
		"count":   len(devices),
	})
}

func (c *AdminController) GetDevice(ctx *gin.Context) {
	device, err := c.registry.GetDevice(ctx.Request.Context(), ctx.Param("serial"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	if device == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}

	ctx.JSON(http.StatusOK, device)
}

func (c *AdminController) Sweep(ctx *gin.Context) {
	result, err := c.sweeper.Sweep(ctx.Request.Context())
	if err != nil {
		c.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (c *AdminController) enqueue(ctx *gin.Context, status int, body gin.H, commands ...string) {
	if err := c.engine.Enqueue(ctx.Request.Context(), commands...); err != nil {
		c.fail(ctx, err)
		return
	}
	ctx.JSON(status, body)
}

func (c *AdminController) fail(ctx *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		middleware.GetLogger(ctx, c.logger).ErrorWithError(err, "Admin request failed")
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}

// validField rejects values that would break the tab separated command format
func validField(v string) bool {
	return strings.TrimSpace(v) != "" && !strings.ContainsAny(v, "\t\r\n")
}

func stripDataURL(photo string) string {
	if strings.HasPrefix(photo, "data:") {
		if i := strings.Index(photo, ","); i >= 0 {
			return photo[i+1:]
		}
	}
	return photo
}
