// forms.go — формы портала и их проверка.
package service

import (
	"io"
	"strings"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
)

// SignInForm — форма входа.
type SignInForm struct {
	Email    string
	Password string
}

// Validate проверяет форму входа.
func (f SignInForm) Validate() error {
	errs := FieldErrors{}
	errs.Check("email", f.Email, Email())
	errs.Check("password", f.Password, Required(128))
	return errs.Err()
}

// SignUpForm — форма регистрации.
type SignUpForm struct {
	Email           string
	Password        string
	PasswordConfirm string
	DisplayName     string
}

// Validate проверяет форму регистрации.
func (f SignUpForm) Validate() error {
	errs := FieldErrors{}
	errs.Check("email", f.Email, Email())
	errs.Check("password", f.Password, MinLength(MinPasswordLength, MsgPasswordShort), Optional(128))
	if f.Password != f.PasswordConfirm {
		errs.Add("password_confirm", MsgPasswordsMatch)
	}
	errs.Check("display_name", f.DisplayName, Required(100))
	return errs.Err()
}

// ProfileForm — форма редактирования профиля.
type ProfileForm struct {
	DisplayName string
	City        string
	Region      string
}

// Update проверяет форму и возвращает изменения профиля.
func (f ProfileForm) Update() (model.ProfileUpdate, error) {
	errs := FieldErrors{}
	errs.Check("display_name", f.DisplayName, Required(100))
	errs.Check("city", f.City, Optional(100))
	errs.Check("region", f.Region, Optional(100))
	if err := errs.Err(); err != nil {
		return model.ProfileUpdate{}, err
	}

	name := strings.TrimSpace(f.DisplayName)
	city := strings.TrimSpace(f.City)
	region := strings.TrimSpace(f.Region)
	return model.ProfileUpdate{DisplayName: &name, City: &city, Region: &region}, nil
}

// Допустимые типы фото обращения.
var photoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ReportForm — форма обращения. Photo может быть nil.
type ReportForm struct {
	Category    string
	Description string
	Address     string
	City        string

	Photo            io.Reader
	PhotoName        string
	PhotoContentType string
	PhotoSize        int64
}

// Validate проверяет форму; maxPhotoBytes <= 0 — без ограничения размера.
func (f ReportForm) Validate(maxPhotoBytes int64) error {
	categories := make([]string, 0, len(model.ReportCategories))
	for _, c := range model.ReportCategories {
		categories = append(categories, string(c))
	}

	errs := FieldErrors{}
	errs.Check("category", f.Category, OneOf(categories...))
	errs.Check("description", f.Description, Required(2000))
	errs.Check("address", f.Address, Required(300))
	errs.Check("city", f.City, Required(100))
	if f.Photo != nil {
		if _, ok := photoTypes[f.PhotoContentType]; !ok {
			errs.Add("photo", MsgPhotoType)
		} else if maxPhotoBytes > 0 && f.PhotoSize > maxPhotoBytes {
			errs.Add("photo", MsgPhotoTooLarge)
		}
	}
	return errs.Err()
}

// WasteForm — форма сдачи отходов.
type WasteForm struct {
	WasteType         string
	WeightKg          string
	CollectionPointID string
}

// entry проверяет форму и строит запись с начисленными баллами.
func (f WasteForm) entry(userID string) (*model.WasteEntry, error) {
	types := make([]string, 0, len(model.WasteTypes))
	for _, w := range model.WasteTypes {
		types = append(types, string(w))
	}

	errs := FieldErrors{}
	errs.Check("waste_type", f.WasteType, OneOf(types...))

	weight, ok := ParseDecimal(f.WeightKg)
	switch {
	case strings.TrimSpace(f.WeightKg) == "":
		errs.Add("weight_kg", MsgRequired)
	case !ok:
		errs.Add("weight_kg", MsgNumber)
	case weight <= 0 || weight > model.MaxWasteWeightKg:
		errs.Add("weight_kg", MsgWeightRange)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	wt := model.WasteType(strings.TrimSpace(f.WasteType))
	e := &model.WasteEntry{
		UserID:       userID,
		WasteType:    wt,
		WeightKg:     weight,
		PointsEarned: model.PointsFor(wt, weight),
	}
	if id := strings.TrimSpace(f.CollectionPointID); id != "" {
		e.CollectionPointID = &id
	}
	return e, nil
}
