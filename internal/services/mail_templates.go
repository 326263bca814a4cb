package services

import (
	htmltemplate "html/template"
	texttemplate "text/template"
)

type mailData struct {
	Name     string
	OTP      string
	ValidFor int
}

type emailTemplate struct {
	name    string
	subject string // %s is the code
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

const supportAddress = "support@deepdey.me"

var verifyEmail = emailTemplate{
	name:    "verify",
	subject: "Welcome to NoteBook! Verify your email with code: %s",
	html: htmltemplate.Must(htmltemplate.New("verify").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0;">
  <div style="max-width: 600px; margin: 40px auto; background-color: #ffffff; border-radius: 8px; overflow: hidden;">
    <div style="background: #1a1a1a; padding: 30px; text-align: center; color: #ffffff;">
      <h1 style="margin: 0;">📝 NoteBook</h1>
      <p style="margin: 5px 0 0 0;">Complete Your Registration</p>
    </div>
    <div style="padding: 40px 30px; color: #666666; font-size: 16px; line-height: 1.6;">
      <p>Hello <strong>{{.Name}}</strong>,</p>
      <p>Welcome to NoteBook! Please verify your email address by entering this verification code:</p>
      <div style="background-color: #1a1a1a; border: 2px dashed #3b82f6; border-radius: 8px; padding: 30px; text-align: center;">
        <div style="font-size: 36px; font-weight: bold; color: #3b82f6; letter-spacing: 8px;">{{.OTP}}</div>
        <p style="color: #888888; font-size: 14px;">Valid for {{.ValidFor}} minutes</p>
      </div>
      <p>Never share this code with anyone, even if they claim to be from NoteBook support.</p>
      <p>If you didn't create a NoteBook account, you can safely ignore this email.</p>
      <p>Questions? Contact us at ` + supportAddress + `</p>
    </div>
  </div>
</body>
</html>
`)),
	text: texttemplate.Must(texttemplate.New("verify").Parse(`Hi {{.Name}},

Welcome to NoteBook!

Your email verification code is: {{.OTP}}

Please enter this code to complete your registration. This code will expire in {{.ValidFor}} minutes.

If you didn't create a NoteBook account, you can safely ignore this email.

Questions? Contact us at ` + supportAddress + `

The NoteBook Team
`)),
}

var resetEmail = emailTemplate{
	name:    "password_reset",
	subject: "Reset your NoteBook password - Code: %s",
	html: htmltemplate.Must(htmltemplate.New("password_reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0;">
  <div style="max-width: 600px; margin: 40px auto; background-color: #ffffff; border-radius: 8px; overflow: hidden;">
    <div style="background: #1a1a1a; padding: 30px; text-align: center; color: #ffffff;">
      <h1 style="margin: 0;">🔒 NoteBook</h1>
      <p style="margin: 5px 0 0 0;">Password Reset Request</p>
    </div>
    <div style="padding: 40px 30px; color: #666666; font-size: 16px; line-height: 1.6;">
      <p>Hello <strong>{{.Name}}</strong>,</p>
      <p>We received a request to reset your NoteBook account password. Use this code to continue:</p>
      <div style="background-color: #1a1a1a; border: 2px dashed #ef4444; border-radius: 8px; padding: 30px; text-align: center;">
        <div style="font-size: 36px; font-weight: bold; color: #ef4444; letter-spacing: 8px;">{{.OTP}}</div>
        <p style="color: #888888; font-size: 14px;">Valid for {{.ValidFor}} minutes</p>
      </div>
      <p>If you did NOT request a password reset, please ignore this email. Your password will remain unchanged.</p>
      <p>Need help? Contact us at ` + supportAddress + `</p>
    </div>
  </div>
</body>
</html>
`)),
	text: texttemplate.Must(texttemplate.New("password_reset").Parse(`Hi {{.Name}},

PASSWORD RESET REQUEST

We received a request to reset your NoteBook account password.

Your password reset code is: {{.OTP}}

This code will expire in {{.ValidFor}} minutes.

If you did NOT request a password reset, please ignore this email. Your password will remain unchanged.

Never share this code with anyone. NoteBook staff will never ask for it.

Need help? Contact us at ` + supportAddress + `

The NoteBook Security Team
`)),
}
