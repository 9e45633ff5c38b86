package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/roadblock/internal/models"
	"github.com/Skotchmaster/roadblock/internal/service"
	"github.com/Skotchmaster/roadblock/pkg/logging"
)

type DriverHTTP struct {
	Svc *service.VehicleService
}

type driverView struct {
	models.Driver
	Vehicles []vehicleView `json:"vehicles"`
	// FinesDue sums the outstanding fines over the driver's vehicles.
	FinesDue decimal.Decimal `json:"finesDue"`
}

func newDriverView(d models.Driver) driverView {
	out := driverView{Driver: d, Vehicles: make([]vehicleView, 0, len(d.Vehicles)), FinesDue: decimal.Zero}
	for _, v := range d.Vehicles {
		out.Vehicles = append(out.Vehicles, newVehicleView(v))
		out.FinesDue = out.FinesDue.Add(v.FinesDue)
	}
	return out
}

func (h *DriverHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()

	drivers, err := h.Svc.ListDrivers(ctx)
	if err != nil {
		return err
	}
	views := make([]driverView, 0, len(drivers))
	for _, d := range drivers {
		views = append(views, newDriverView(d))
	}
	return c.JSON(http.StatusOK, echo.Map{"drivers": views})
}

func (h *DriverHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "driver.get")

	id, ok := pathID(c, "id")
	if !ok {
		l.Warn("get_driver_failed", "status", 400, "reason", "invalid id", "id", c.Param("id"))
		return errorMessage(c, http.StatusBadRequest, "Invalid driver ID")
	}
	d, err := h.Svc.GetDriver(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_driver_failed", "status", 404, "reason", "not found", "driver_id", id)
			return errorMessage(c, http.StatusNotFound, "Driver record not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"driver": newDriverView(*d)})
}
