package cli

// Route is a screen of the client. The set is closed: only this package
// defines routes.
type Route interface {
	route() string
}

type ItemsRoute struct{}

type ItemDetailRoute struct{ ItemID string }

type ItemEditRoute struct{ ItemID string }

type NewItemRoute struct{}

type CategoriesRoute struct{}

type TagsRoute struct{}

type RemindersRoute struct{}

type SettingsRoute struct{}

type SignInRoute struct{}

func (ItemsRoute) route() string      { return "items" }
func (ItemDetailRoute) route() string { return "item" }
func (ItemEditRoute) route() string   { return "edit" }
func (NewItemRoute) route() string    { return "new" }
func (CategoriesRoute) route() string { return "categories" }
func (TagsRoute) route() string       { return "tags" }
func (RemindersRoute) route() string  { return "reminders" }
func (SettingsRoute) route() string   { return "settings" }
func (SignInRoute) route() string     { return "sign-in" }

// requiresAuth reports whether r is only reachable when signed in.
func requiresAuth(r Route) bool {
	switch r.(type) {
	case SignInRoute, SettingsRoute:
		return false
	}
	return true
}
