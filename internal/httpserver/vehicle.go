package httpserver

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/roadblock/internal/config"
	"github.com/Skotchmaster/roadblock/internal/form"
	"github.com/Skotchmaster/roadblock/internal/images"
	"github.com/Skotchmaster/roadblock/internal/models"
	"github.com/Skotchmaster/roadblock/internal/service"
	"github.com/Skotchmaster/roadblock/internal/util"
	"github.com/Skotchmaster/roadblock/pkg/logging"
)

const (
	msgInvalidVehicleID = "Invalid vehicle ID"
	msgVehicleNotFound  = "Vehicle record not found"
	msgPaymentNotFound  = "Payment record not found"
	msgNotAnImage       = "Please upload an image file"
	msgUploadsDisabled  = "Image uploads are not configured"
)

// imageFields maps the optional file inputs of the vehicle form to the
// text fields that receive the uploaded URL.
var imageFields = map[string]string{
	"vehicleImageFile": "vehicleImage",
	"driverImageFile":  "driverImage",
}

type VehicleHTTP struct {
	Svc         *service.VehicleService
	Images      *images.Store
	ImageConfig config.Images
}

// vehicleView adds the derived payment total to a stored vehicle.
type vehicleView struct {
	models.Vehicle
	TotalPayments decimal.Decimal `json:"totalPayments"`
}

func newVehicleView(v models.Vehicle) vehicleView {
	return vehicleView{Vehicle: v, TotalPayments: models.TotalPayments(v.Payments)}
}

func (h *VehicleHTTP) pageData(v *models.Vehicle) echo.Map {
	return echo.Map{
		"vehicle":      newVehicleView(*v),
		"cloudName":    h.ImageConfig.CloudName,
		"uploadPreset": h.ImageConfig.UploadPreset,
	}
}

func (h *VehicleHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vehicle.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.List(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return err
	}

	views := make([]vehicleView, 0, len(items))
	for _, v := range items {
		views = append(views, newVehicleView(v))
	}
	l.Info("list_vehicles_success", "count", len(views))
	return c.JSON(http.StatusOK, echo.Map{
		"vehicles": views,
		"meta":     util.NewMeta(page, limit, total),
	})
}

func (h *VehicleHTTP) NewPage(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"cloudName":    h.ImageConfig.CloudName,
		"uploadPreset": h.ImageConfig.UploadPreset,
		"uploads":      h.Images != nil,
	})
}

func (h *VehicleHTTP) Get(c echo.Context) error {
	v, err := h.load(c)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	return c.JSON(http.StatusOK, h.pageData(v))
}

// load reads the vehicle named by the path. When it returns (nil, nil) the
// error response has already been written.
func (h *VehicleHTTP) load(c echo.Context) (*models.Vehicle, error) {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vehicle.load")

	id, ok := pathID(c, "id")
	if !ok {
		l.Warn("load_vehicle_failed", "status", 400, "reason", "invalid id", "id", c.Param("id"))
		return nil, errorMessage(c, http.StatusBadRequest, msgInvalidVehicleID)
	}
	v, err := h.Svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("load_vehicle_failed", "status", 404, "reason", "not found", "vehicle_id", id)
			return nil, errorMessage(c, http.StatusNotFound, msgVehicleNotFound)
		}
		return nil, err
	}
	return v, nil
}

func (h *VehicleHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vehicle.create")

	raw, ok, err := h.readVehicleForm(c)
	if !ok {
		return err
	}
	res := form.VehicleDriver.Parse(raw)
	if !res.OK() {
		l.Warn("create_vehicle_failed", "status", 400, "reason", "validation")
		return badRequest(c, raw, res.Errors)
	}

	v, d := vehicleFromValues(res.Values), driverFromValues(res.Values)
	if err := h.Svc.CreateWithDriver(ctx, v, d); err != nil {
		return err
	}

	l.Info("create_vehicle_success", "vehicle_id", v.ID, "driver_id", d.ID)
	return done(c, "/vehicles", echo.Map{"vehicle": v})
}

func (h *VehicleHTTP) EditPage(c echo.Context) error {
	return h.Get(c)
}

func (h *VehicleHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vehicle.update")

	id, ok := pathID(c, "id")
	if !ok {
		return errorMessage(c, http.StatusBadRequest, msgInvalidVehicleID)
	}
	raw, ok, err := h.readVehicleForm(c)
	if !ok {
		return err
	}
	res := form.VehicleDriver.Parse(raw)
	if !res.OK() {
		l.Warn("update_vehicle_failed", "status", 400, "reason", "validation", "vehicle_id", id)
		return badRequest(c, raw, res.Errors)
	}

	if err := h.Svc.UpdateWithDriver(ctx, id, vehicleFromValues(res.Values), driverFromValues(res.Values)); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return errorMessage(c, http.StatusNotFound, msgVehicleNotFound)
		}
		return err
	}

	l.Info("update_vehicle_success", "vehicle_id", id)
	return done(c, vehicleURL(id), nil)
}

// Action is the single POST endpoint of the detail page. The _method field
// selects what it does.
func (h *VehicleHTTP) Action(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vehicle.action")

	id, ok := pathID(c, "id")
	if !ok {
		return errorMessage(c, http.StatusBadRequest, msgInvalidVehicleID)
	}
	raw, err := form.FromRequest(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	switch raw["_method"] {
	case "delete":
		if err := h.Svc.Delete(ctx, id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return errorMessage(c, http.StatusNotFound, msgVehicleNotFound)
			}
			return err
		}
		l.Info("delete_vehicle_success", "vehicle_id", id)
		return c.Redirect(http.StatusSeeOther, "/vehicles")

	case "delete_payment":
		res := form.DeletePayment.Parse(raw)
		if !res.OK() {
			return badRequest(c, raw, res.Errors)
		}
		paymentID := uint(res.Values.Int("paymentId"))
		v, err := h.Svc.DeletePayment(ctx, id, paymentID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				l.Warn("delete_payment_failed", "status", 404, "vehicle_id", id, "payment_id", paymentID)
				return errorMessage(c, http.StatusNotFound, msgPaymentNotFound)
			}
			return err
		}
		l.Info("delete_payment_success", "vehicle_id", id, "payment_id", paymentID)
		return c.JSON(http.StatusOK, h.pageData(v))
	}

	return c.Redirect(http.StatusSeeOther, vehicleURL(id))
}

func (h *VehicleHTTP) RecordPaymentPage(c echo.Context) error {
	return h.Get(c)
}

func (h *VehicleHTTP) RecordPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vehicle.record_payment")

	id, raw, res, ok, err := h.readAmount(c)
	if !ok {
		return err
	}

	p, err := h.Svc.RecordPayment(ctx, id, res.Values.Decimal("amount"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return errorMessage(c, http.StatusNotFound, msgVehicleNotFound)
		case errors.Is(err, service.ErrInvalidAmount):
			return fieldError(c, raw, "amount", "Please enter a positive number")
		}
		return err
	}

	l.Info("record_payment_success", "vehicle_id", id, "payment_id", p.ID)
	return done(c, vehicleURL(id), echo.Map{"payment": p})
}

func (h *VehicleHTTP) AddFine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vehicle.add_fine")

	id, raw, res, ok, err := h.readAmount(c)
	if !ok {
		return err
	}

	if err := h.Svc.AddFine(ctx, id, res.Values.Decimal("amount")); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return errorMessage(c, http.StatusNotFound, msgVehicleNotFound)
		case errors.Is(err, service.ErrInvalidAmount):
			return fieldError(c, raw, "amount", "Please enter a positive number")
		case errors.Is(err, service.ErrAmountTooLarge):
			l.Warn("add_fine_failed", "status", http.StatusBadRequest, "reason", "fines_due_overflow", "vehicle_id", id)
			return fieldError(c, raw, "amount", "Fines due would exceed "+models.MaxMoney.StringFixed(2))
		}
		return err
	}

	l.Info("add_fine_success", "vehicle_id", id)
	return done(c, vehicleURL(id), nil)
}

// readAmount handles the shared part of the two money forms. ok is false
// when a response (or an error for the error handler) is already decided.
func (h *VehicleHTTP) readAmount(c echo.Context) (uint, map[string]string, form.Result, bool, error) {
	id, ok := pathID(c, "id")
	if !ok {
		return 0, nil, form.Result{}, false, errorMessage(c, http.StatusBadRequest, msgInvalidVehicleID)
	}
	raw, err := form.FromRequest(c)
	if err != nil {
		return 0, nil, form.Result{}, false, echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	res := form.Amount.Parse(raw)
	if !res.OK() {
		return 0, nil, form.Result{}, false, badRequest(c, raw, res.Errors)
	}
	return id, raw, res, true, nil
}

// readVehicleForm flattens the vehicle form and, when image files were
// attached, uploads them together and puts their public ids into the form.
func (h *VehicleHTTP) readVehicleForm(c echo.Context) (map[string]string, bool, error) {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vehicle.form")

	raw, err := form.FromRequest(c)
	if err != nil {
		return nil, false, echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	files := attachedImages(c)
	if len(files) == 0 {
		return raw, true, nil
	}
	if h.Images == nil {
		var errs form.Errors
		errs.AddForm(msgUploadsDisabled)
		return nil, false, badRequest(c, raw, errs)
	}

	uploads, err := h.Images.PutFiles(ctx, files)
	if err != nil {
		if errors.Is(err, images.ErrNotImage) {
			var errs form.Errors
			for field := range files {
				errs.Add(imageFields[field], msgNotAnImage)
			}
			return nil, false, badRequest(c, raw, errs)
		}
		l.Error("image_upload_failed", "status", 500, "error", err)
		return nil, false, err
	}
	for field, up := range uploads {
		raw[imageFields[field]] = up.PublicID
	}
	return raw, true, nil
}

func attachedImages(c echo.Context) map[string]*multipart.FileHeader {
	mf, err := c.MultipartForm()
	if err != nil || mf == nil {
		return nil
	}
	files := map[string]*multipart.FileHeader{}
	for field := range imageFields {
		if fhs := mf.File[field]; len(fhs) > 0 && fhs[0].Size > 0 {
			files[field] = fhs[0]
		}
	}
	return files
}

func vehicleFromValues(v form.Values) *models.Vehicle {
	return &models.Vehicle{
		PlateNumber:  v.String("plateNumber"),
		MakeAndModel: v.String("makeAndModel"),
		Image:        v.String("vehicleImage"),
		FinesDue:     v.Decimal("finesDue"),
		Year:         v.Int("year"),
		Colour:       v.String("colour"),
		Weight:       v.Int("weight"),
		NetWeight:    v.Int("netWeight"),
	}
}

func driverFromValues(v form.Values) *models.Driver {
	return &models.Driver{
		FullName:      v.String("fullName"),
		LicenseNumber: v.String("licenseNumber"),
		Image:         v.String("driverImage"),
		NationalID:    v.String("nationalID"),
		DOB:           v.Date("dob"),
		Phone:         v.String("phone"),
		Defensive:     v.String("defensive"),
		Medical:       v.String("medical"),
		LicenceClass:  v.String("licenceClass"),
		LicenceYear:   v.Int("licenceYear"),
	}
}
