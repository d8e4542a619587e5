package saml

import (
	"html/template"
	"strings"
)

// postFormTemplate is the auto-posting form spec §4.6 describes: "an
// auto-posting HTML form targeting the ACS URL with SAMLResponse and the
// request's RelayState". html/template auto-escapes every field, so a
// forged RelayState cannot inject markup.
var postFormTemplate = template.Must(template.New("saml-post").Parse(`<!DOCTYPE html>
<html>
<body onload="document.forms[0].submit()">
<noscript><p>Your browser does not support JavaScript auto-submission. Click the button below to continue.</p></noscript>
<form method="post" action="{{.Destination}}">
<input type="hidden" name="{{.FieldName}}" value="{{.Payload}}" />
{{if .RelayState}}<input type="hidden" name="RelayState" value="{{.RelayState}}" />{{end}}
<noscript><input type="submit" value="Continue" /></noscript>
</form>
</body>
</html>
`))

type postFormData struct {
	Destination string
	FieldName   string
	Payload     string
	RelayState  string
}

// BuildPostForm renders the auto-posting HTML body for either a SAMLResponse
// (IdP -> SP) or a SAMLRequest (SP -> IdP), depending on fieldName.
func BuildPostForm(destination, fieldName string, xmlPayload []byte, relayState string) (string, error) {
	var b strings.Builder
	err := postFormTemplate.Execute(&b, postFormData{
		Destination: destination,
		FieldName:   fieldName,
		Payload:     EncodePostBinding(xmlPayload),
		RelayState:  relayState,
	})
	return b.String(), err
}
