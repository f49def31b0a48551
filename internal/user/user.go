package user

import (
	"sort"

	"github.com/frahmantamala/ad-user-manager/internal/directory"
	"github.com/go-ldap/ldap/v3"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const unnamed = "Unnamed"

// User is the read-only projection of a directory entry.
type User struct {
	DN         string
	Name       string
	Username   string
	FullName   string
	Email      string
	Disabled   bool
	Title      string
	Department string
	Phone      string
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		Name:     u.Name,
		Username: u.Username,
		FullName: u.FullName,
		Email:    u.Email,
		Disabled: u.Disabled,
	}
}

func (u *User) ToDetailResponse() UserDetailResponse {
	return UserDetailResponse{
		DN:         u.DN,
		Name:       u.Name,
		Username:   u.Username,
		Email:      u.Email,
		Title:      u.Title,
		Department: u.Department,
		Phone:      u.Phone,
	}
}

// FromEntry maps the attributes requested by listAttributes and
// detailAttributes. Name falls back to cn, then to a placeholder.
func FromEntry(e *ldap.Entry) User {
	cn := e.GetAttributeValue(directory.AttrCommonName)

	name := e.GetAttributeValue(directory.AttrDisplayName)
	if name == "" {
		name = cn
	}
	if name == "" {
		name = unnamed
	}

	uac, _ := directory.ParseUAC(e.GetAttributeValue(directory.AttrUserAccountControl))

	dn := e.GetAttributeValue(directory.AttrDistinguishedName)
	if dn == "" {
		dn = e.DN
	}

	return User{
		DN:         dn,
		Name:       name,
		Username:   e.GetAttributeValue(directory.AttrSAMAccountName),
		FullName:   cn,
		Email:      e.GetAttributeValue(directory.AttrMail),
		Disabled:   directory.IsDisabled(uac),
		Title:      e.GetAttributeValue(directory.AttrTitle),
		Department: e.GetAttributeValue(directory.AttrDepartment),
		Phone:      e.GetAttributeValue(directory.AttrTelephoneNumber),
	}
}

// SortByName orders users by Name using the collation rules of locale,
// ignoring case. Equal names keep their directory order.
func SortByName(users []User, locale string) {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	col := collate.New(tag, collate.IgnoreCase)

	sort.SliceStable(users, func(i, j int) bool {
		return col.CompareString(users[i].Name, users[j].Name) < 0
	})
}
