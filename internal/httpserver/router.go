package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/roadblock/internal/repo"
	"github.com/Skotchmaster/roadblock/internal/session"
	"github.com/Skotchmaster/roadblock/pkg/logging"
)

type Deps struct {
	Repo     *repo.GormRepo
	Sessions *session.Manager

	Auth     *AuthHTTP
	Vehicles *VehicleHTTP
	Drivers  *DriverHTTP
	Images   *ImageHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = HTTPErrorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.Repo.Ping(ctx); err != nil {
			logging.FromContext(ctx).Error("readiness_failed", "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	requireUser := d.Sessions.RequireUser(d.Auth.Svc)

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/vehicles")
	}, requireUser)

	e.GET("/login", d.Auth.LoginPage)
	e.POST("/login", d.Auth.Login)
	e.GET("/join", d.Auth.JoinPage)
	e.POST("/join", d.Auth.Join)
	e.POST("/logout", d.Auth.Logout)

	account := e.Group("/account", requireUser)
	account.GET("", d.Auth.Account)
	account.POST("/username", d.Auth.ChangeUsername)
	account.POST("/password", d.Auth.ChangePassword)

	vehicles := e.Group("/vehicles", requireUser)
	vehicles.GET("", d.Vehicles.List)
	vehicles.GET("/new", d.Vehicles.NewPage)
	vehicles.POST("/new", d.Vehicles.Create)
	vehicles.GET("/:id", d.Vehicles.Get)
	vehicles.POST("/:id", d.Vehicles.Action)
	vehicles.GET("/:id/edit", d.Vehicles.EditPage)
	vehicles.POST("/:id/edit", d.Vehicles.Update)
	vehicles.GET("/:id/record-payment", d.Vehicles.RecordPaymentPage)
	vehicles.POST("/:id/record-payment", d.Vehicles.RecordPayment)
	vehicles.POST("/:id/add-fine", d.Vehicles.AddFine)

	drivers := e.Group("/drivers", requireUser)
	drivers.GET("", d.Drivers.List)
	drivers.GET("/:id", d.Drivers.Get)

	e.POST("/images", d.Images.Upload, requireUser)

	api := e.Group("/api")
	api.POST("/login", d.Auth.Login)
	api.POST("/create-account", d.Auth.Join)

	private := api.Group("", d.Sessions.RequireBearer(d.Auth.Svc))
	private.POST("/change-username", d.Auth.ChangeUsername)
	private.POST("/change-password", d.Auth.ChangePassword)
	private.GET("/vehicles", d.Vehicles.List)
	private.POST("/vehicles/new", d.Vehicles.Create)
	private.GET("/vehicles/:id", d.Vehicles.Get)
	private.POST("/vehicles/:id/record-payment", d.Vehicles.RecordPayment)
	private.POST("/vehicles/:id/add-fine", d.Vehicles.AddFine)
	private.GET("/drivers", d.Drivers.List)
	private.GET("/drivers/:id", d.Drivers.Get)
	private.POST("/images", d.Images.Upload)
}
