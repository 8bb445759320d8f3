package templates

// Option pattern
type Option func(*EmailData)

func WithEmail(email string) Option     { return func(d *EmailData) { d.Email = email } }
func WithLoginURL(url string) Option    { return func(d *EmailData) { d.LoginURL = url } }
func WithAppName(appName string) Option { return func(d *EmailData) { d.AppName = appName } }

// NewWelcomeData builds the payload of the welcome template.
func NewWelcomeData(username string, opts ...Option) map[string]any {
	d := EmailData{Username: username}
	for _, opt := range opts {
		opt(&d)
	}
	return ToMap(d)
}
