package metadata

// DefaultDisposableDomains, DefaultFreeProviders, and DefaultRolePrefixes are
// small seed lists suitable for local development and tests. Larger curated
// lists can be supplied through New(); no configuration key loads them.
const DefaultDisposableDomains = `
mailinator.com
tempmail.org
10minutemail.com
guerrillamail.com
trashmail.com
temp-mail.org
yopmail.com
maildrop.cc
dispostable.com
fakeinbox.com
throwawaymail.com
getnada.com
sharklasers.com
mintemail.com
mailnesia.com
`

const DefaultFreeProviders = `
gmail.com
googlemail.com
yahoo.com
outlook.com
hotmail.com
live.com
aol.com
protonmail.com
icloud.com
mail.com
yandex.com
zoho.com
gmx.com
`

const DefaultRolePrefixes = `
admin
administrator
info
support
sales
contact
help
service
team
hello
hi
mail
webmaster
noreply
no-reply
postmaster
abuse
security
billing
marketing
hr
jobs
careers
press
media
office
`
