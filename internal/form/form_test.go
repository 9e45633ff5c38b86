package form

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositiveDecimal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		ok   bool
		want string
	}{
		{in: "-5"},
		{in: "abc"},
		{in: ""},
		{in: "0"},
		{in: "0.00"},
		{in: "1.234"},
		{in: "1e3"},
		{in: "12,5"},
		{in: "0.01", ok: true, want: "0.01"},
		{in: "1000", ok: true, want: "1000"},
		{in: " 40 ", ok: true, want: "40"},
		{in: "123232.23", ok: true, want: "123232.23"},
		{in: "1.50", ok: true, want: "1.5"},
		{in: "1.500", ok: true, want: "1.5"},
		{in: "9999999999.99", ok: true, want: "9999999999.99"},
		{in: "10000000000"},
		{in: "99999999999"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			res := Amount.Parse(map[string]string{"amount": tt.in})
			if !tt.ok {
				require.False(t, res.OK())
				assert.NotEmpty(t, res.Errors.FieldErrors["amount"])
				return
			}
			require.True(t, res.OK(), res.Errors.Error())
			assert.True(t, res.Values.Decimal("amount").Equal(decimal.RequireFromString(tt.want)))
		})
	}
}

func TestPositiveInt(t *testing.T) {
	t.Parallel()

	s := Schema{Fields: []Field{{Name: "id", Kind: PositiveInt}}}
	tests := []struct {
		in   string
		ok   bool
		want int
	}{
		{in: "0"},
		{in: "-3"},
		{in: "3.5"},
		{in: "abc"},
		{in: ""},
		{in: "1", ok: true, want: 1},
		{in: "42", ok: true, want: 42},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			res := s.Parse(map[string]string{"id": tt.in})
			if !tt.ok {
				require.False(t, res.OK())
				assert.Len(t, res.Errors.FieldErrors["id"], 1)
				return
			}
			require.True(t, res.OK())
			assert.Equal(t, tt.want, res.Values.Int("id"))
		})
	}
}

func TestDate(t *testing.T) {
	t.Parallel()

	s := Schema{Fields: []Field{{Name: "dob", Kind: Date}}}

	res := s.Parse(map[string]string{"dob": "1990-02-28"})
	require.True(t, res.OK())
	require.NotNil(t, res.Values.Date("dob"))
	assert.Equal(t, 1990, res.Values.Date("dob").Year())

	res = s.Parse(map[string]string{"dob": "28/02/1990"})
	assert.False(t, res.OK())
	res = s.Parse(map[string]string{"dob": "1990-02-30"})
	assert.False(t, res.OK())
}

func TestString_TransformsAndBounds(t *testing.T) {
	t.Parallel()

	res := ChangeUsername.Parse(map[string]string{"username": "  Test_User  "})
	require.True(t, res.OK())
	assert.Equal(t, "test_user", res.Values.String("username"))

	res = ChangeUsername.Parse(map[string]string{"username": " ab "})
	require.False(t, res.OK())
	assert.Equal(t, []string{"Must contain at least 4 character(s)"}, res.Errors.FieldErrors["username"])

	res = ChangeUsername.Parse(map[string]string{"username": strings.Repeat("a", 51)})
	require.False(t, res.OK())
	assert.Equal(t, []string{"Must contain at most 50 character(s)"}, res.Errors.FieldErrors["username"])

	res = ChangeUsername.Parse(map[string]string{})
	require.False(t, res.OK())
	assert.Equal(t, []string{"Required"}, res.Errors.FieldErrors["username"])
}

func TestPasswordByteLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pw   string
		ok   bool
	}{
		{name: "ascii at rune limit", pw: strings.Repeat("a", 50), ok: true},
		{name: "multibyte within bcrypt limit", pw: strings.Repeat("é", 36), ok: true},
		{name: "multibyte over bcrypt limit", pw: strings.Repeat("é", 37)},
		{name: "multibyte at rune limit", pw: strings.Repeat("é", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := CreateAccount.Parse(map[string]string{
				"username":             "test_user",
				"password":             tt.pw,
				"passwordConfirmation": tt.pw,
			})
			if tt.ok {
				assert.True(t, res.OK(), res.Errors.Error())
				return
			}
			require.False(t, res.OK())
			assert.Equal(t, []string{"Must be at most 72 bytes long"}, res.Errors.FieldErrors["password"])
		})
	}
}

func TestPasswordConfirmationRefinement(t *testing.T) {
	t.Parallel()

	res := CreateAccount.Parse(map[string]string{
		"username":             "test_user",
		"password":             "abcd",
		"passwordConfirmation": "abce",
	})
	require.False(t, res.OK())
	assert.Equal(t, []string{PasswordsDontMatch}, res.Errors.FieldErrors["passwordConfirmation"])
	assert.Empty(t, res.Errors.FormError)

	res = CreateAccount.Parse(map[string]string{
		"username":             "test_user",
		"password":             "abcd",
		"passwordConfirmation": "abcd",
	})
	require.True(t, res.OK())
}

func TestRefinementsWaitForFieldChecks(t *testing.T) {
	t.Parallel()

	res := CreateAccount.Parse(map[string]string{
		"username":             "ab",
		"password":             "abcd",
		"passwordConfirmation": "wxyz",
	})
	require.False(t, res.OK())
	assert.Contains(t, res.Errors.FieldErrors, "username")
	assert.NotContains(t, res.Errors.FieldErrors, "passwordConfirmation")
}

func TestFormLevelRefinements(t *testing.T) {
	t.Parallel()

	never := func(Values) bool { return false }
	s := Schema{
		Fields: []Field{{Name: "a", Kind: String}},
		Refinements: []Refinement{
			{Message: "first problem", Check: never},
			{Message: "second problem", Check: never},
		},
	}
	res := s.Parse(map[string]string{"a": "x"})
	require.False(t, res.OK())
	assert.Equal(t, "first problem, second problem", res.Errors.FormError)
	assert.Empty(t, res.Errors.FieldErrors)
}

func TestParseIsPure(t *testing.T) {
	t.Parallel()

	raw := map[string]string{"plateNumber": " PBS492 ", "makeAndModel": "Land Rover", "finesDue": "1.5"}
	a := VehicleDriver.Parse(raw)
	b := VehicleDriver.Parse(raw)
	assert.Equal(t, a.Errors, b.Errors)
	assert.Equal(t, " PBS492 ", raw["plateNumber"])
}

func TestVehicleDriver(t *testing.T) {
	t.Parallel()

	res := VehicleDriver.Parse(map[string]string{
		"plateNumber":   " PBS492 ",
		"makeAndModel":  "Land Rover Defender",
		"finesDue":      "100",
		"vehicleImage":  "",
		"fullName":      "John Moyo",
		"licenseNumber": "472629HD",
		"driverImage":   "",
		"year":          "2018",
		"dob":           "",
	})
	require.True(t, res.OK(), res.Errors.Error())
	assert.Equal(t, "PBS492", res.Values.String("plateNumber"))
	assert.Equal(t, 2018, res.Values.Int("year"))
	assert.Equal(t, 0, res.Values.Int("weight"))
	assert.Nil(t, res.Values.Date("dob"))

	res = VehicleDriver.Parse(map[string]string{
		"plateNumber":  "",
		"makeAndModel": "x",
		"finesDue":     "-1",
		"year":         "0",
	})
	require.False(t, res.OK())
	for _, f := range []string{"plateNumber", "finesDue", "vehicleImage", "fullName", "licenseNumber", "driverImage", "year"} {
		assert.Contains(t, res.Errors.FieldErrors, f)
	}
	assert.NotContains(t, res.Errors.FieldErrors, "makeAndModel")
}

func TestErrorsError(t *testing.T) {
	t.Parallel()

	var e Errors
	e.Add("username", "too short")
	e.Add("password", "too short")
	e.AddForm("Incorrect credentials")
	assert.Equal(t, "too short, too short, Incorrect credentials", e.Error())
}

func TestFromRequest(t *testing.T) {
	t.Parallel()

	body := url.Values{
		"username":   {"alice", "ignored"},
		"password":   {"secret"},
		CSRFField:    {"token"},
		"redirectTo": {"/vehicles"},
	}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	c := echo.New().NewContext(req, httptest.NewRecorder())

	raw, err := FromRequest(c)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"username":   "alice",
		"password":   "secret",
		"redirectTo": "/vehicles",
	}, raw)
}
