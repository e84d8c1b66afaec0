package service

import (
	"errors"
	"strings"
	"testing"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"2.5", 2.5, true},
		{" 3 ", 3, true},
		{"2,5", 2.5, true},
		{"٢٫٥", 2.5, true},
		{"١٢", 12, true},
		{"۳.۵", 3.5, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseDecimal(tt.input)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseDecimal(%q) = %v, %v; хотели %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name  string
		check Validator
		input string
		want  string
	}{
		{"required пусто", Required(5), "   ", MsgRequired},
		{"required ок", Required(5), "абвгд", ""},
		{"required длинно", Required(5), "абвгде", MsgTooLong},
		{"optional пусто", Optional(5), "", ""},
		{"optional длинно", Optional(2), "abc", MsgTooLong},
		{"email ок", Email(), " amina@example.org ", ""},
		{"email пусто", Email(), "", MsgRequired},
		{"email без домена", Email(), "amina", MsgEmail},
		{"email с именем", Email(), "Amina <amina@example.org>", MsgEmail},
		{"min ок", MinLength(8, MsgPasswordShort), "12345678", ""},
		{"min коротко", MinLength(8, MsgPasswordShort), "1234567", MsgPasswordShort},
		{"oneof ок", OneOf("a", "b"), " b ", ""},
		{"oneof нет", OneOf("a", "b"), "c", MsgInvalidChoice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.input); got != tt.want {
				t.Errorf("результат = %q, хотели %q", got, tt.want)
			}
		})
	}
}

func TestFieldErrors(t *testing.T) {
	errs := FieldErrors{}
	if errs.Err() != nil {
		t.Fatal("пустой FieldErrors вернул ошибку")
	}

	errs.Check("email", "", Email())
	errs.Check("email", "bad", Email())
	errs.Add("email", MsgTooLong)
	errs.Add("name", MsgRequired)

	err := errs.Err()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Err() = %v, ожидали ErrValidation", err)
	}
	// Сохраняется первая ошибка поля
	if errs["email"] != MsgRequired {
		t.Errorf("email = %q, хотели %q", errs["email"], MsgRequired)
	}
	if !strings.HasSuffix(err.Error(), "email, name") {
		t.Errorf("Error() = %q, поля должны идти по алфавиту", err.Error())
	}
}

func TestSignUpForm(t *testing.T) {
	valid := SignUpForm{
		Email: "amina@example.org", Password: "s3cret-pass",
		PasswordConfirm: "s3cret-pass", DisplayName: "Amina",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() валидной формы: %v", err)
	}

	form := valid
	form.Password, form.PasswordConfirm = "short", "other"
	form.DisplayName = ""

	var verr *ValidationError
	if !errors.As(form.Validate(), &verr) {
		t.Fatal("ожидалась ValidationError")
	}
	want := map[string]string{
		"password":         MsgPasswordShort,
		"password_confirm": MsgPasswordsMatch,
		"display_name":     MsgRequired,
	}
	for field, msg := range want {
		if verr.Fields[field] != msg {
			t.Errorf("%s = %q, хотели %q", field, verr.Fields[field], msg)
		}
	}
	if _, ok := verr.Fields["email"]; ok {
		t.Error("корректный email помечен ошибкой")
	}
}

func TestSignInForm(t *testing.T) {
	if err := (SignInForm{Email: "a@b.ma", Password: "x"}).Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if err := (SignInForm{Email: "a@b.ma"}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("Validate() без пароля = %v", err)
	}
}

func TestProfileForm(t *testing.T) {
	upd, err := ProfileForm{DisplayName: " Amina ", City: " Fès ", Region: ""}.Update()
	if err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	if *upd.DisplayName != "Amina" || *upd.City != "Fès" || *upd.Region != "" {
		t.Errorf("Update() = %q %q %q", *upd.DisplayName, *upd.City, *upd.Region)
	}

	if _, err := (ProfileForm{DisplayName: " "}).Update(); !errors.Is(err, ErrValidation) {
		t.Errorf("Update() без имени = %v", err)
	}
}
