package form

import (
	"github.com/Skotchmaster/roadblock/internal/models"
	"github.com/Skotchmaster/roadblock/pkg/hash"
)

const PasswordsDontMatch = "Passwords don't match"

func username(name string) Field {
	return Field{Name: name, Kind: String, Min: 4, Max: 50, Trim: true, Lower: true}
}

func password(name string) Field {
	return Field{Name: name, Kind: String, Min: 4, Max: 50, MaxBytes: hash.MaxPasswordBytes, Trim: true}
}

func money(name string) Field {
	return Field{Name: name, Kind: PositiveDecimal, MaxDecimal: &models.MaxMoney}
}

func str(name string, lo, hi int) Field {
	return Field{Name: name, Kind: String, Min: lo, Max: hi, Trim: true}
}

func optional(f Field) Field {
	f.Optional = true
	return f
}

func same(a, b string) func(Values) bool {
	return func(v Values) bool { return v.String(a) == v.String(b) }
}

var (
	CreateAccount = Schema{
		Fields: []Field{
			username("username"),
			password("password"),
			password("passwordConfirmation"),
		},
		Refinements: []Refinement{
			{Path: "passwordConfirmation", Message: PasswordsDontMatch, Check: same("password", "passwordConfirmation")},
		},
	}

	Login = Schema{
		Fields: []Field{
			{Name: "username", Kind: String, Min: 1, Max: 50, Trim: true, Lower: true},
			{Name: "password", Kind: String, Min: 1, Max: 50},
			optional(str("redirectTo", 0, 0)),
			optional(str("remember", 0, 10)),
		},
	}

	ChangeUsername = Schema{
		Fields: []Field{username("username")},
	}

	ChangePassword = Schema{
		Fields: []Field{
			{Name: "currentPassword", Kind: String, Min: 1, Max: 50},
			password("newPassword"),
			password("passwordConfirmation"),
		},
		Refinements: []Refinement{
			{Path: "passwordConfirmation", Message: PasswordsDontMatch, Check: same("newPassword", "passwordConfirmation")},
		},
	}

	Vehicle = Schema{
		Fields: []Field{
			str("plateNumber", 1, 255),
			str("makeAndModel", 1, 255),
			money("finesDue"),
			str("vehicleImage", 0, 800),
			optional(Field{Name: "year", Kind: PositiveInt}),
			optional(str("colour", 0, 50)),
			optional(Field{Name: "weight", Kind: PositiveInt}),
			optional(Field{Name: "netWeight", Kind: PositiveInt}),
		},
	}

	Driver = Schema{
		Fields: []Field{
			str("fullName", 1, 255),
			str("licenseNumber", 1, 255),
			str("driverImage", 0, 800),
			optional(str("nationalID", 0, 255)),
			optional(Field{Name: "dob", Kind: Date}),
			optional(str("phone", 0, 50)),
			optional(str("defensive", 0, 255)),
			optional(str("medical", 0, 255)),
			optional(str("licenceClass", 0, 50)),
			optional(Field{Name: "licenceYear", Kind: PositiveInt}),
		},
	}

	// VehicleDriver is the combined create/edit form.
	VehicleDriver = Vehicle.Extend(Driver.Fields, Driver.Refinements...)

	Amount = Schema{
		Fields: []Field{money("amount")},
	}

	DeletePayment = Schema{
		Fields: []Field{{Name: "paymentId", Kind: PositiveInt}},
	}
)
