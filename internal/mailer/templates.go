package mailer

import (
	htmltpl "html/template"
	texttpl "text/template"
)

type otpData struct {
	Brand   string
	Name    string
	Code    string
	Minutes int
}

type welcomeData struct {
	Brand     string
	Name      string
	ClientURL string
}

var otpHTML = htmltpl.Must(htmltpl.New("otp").Parse(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2 style="color:#2563eb">{{.Brand}}</h2>
<p>Hi {{.Name}},</p>
<p>Use this code to verify your email address:</p>
<p style="font-size:32px;font-weight:bold;letter-spacing:8px">
{{.Code}}
</p>
<p>The code expires in {{.Minutes}} minutes. If you did not sign up, ignore this email.</p>
</div>`))

var otpText = texttpl.Must(texttpl.New("otp").Parse(`Hi {{.Name}},

Your {{.Brand}} verification code is:

{{.Code}}

It expires in {{.Minutes}} minutes. If you did not sign up, ignore this email.
`))

var welcomeHTML = htmltpl.Must(htmltpl.New("welcome").Parse(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2 style="color:#2563eb">Welcome to {{.Brand}}!</h2>
<p>Hi {{.Name}}, your email is verified.</p>
<p>You can now list items and contact sellers on campus.</p>
<p><a href="{{.ClientURL}}">Start browsing</a></p>
</div>`))

var welcomeText = texttpl.Must(texttpl.New("welcome").Parse(`Hi {{.Name}},

Your email is verified. Welcome to {{.Brand}}!
You can now list items and contact sellers on campus.

{{.ClientURL}}
`))
