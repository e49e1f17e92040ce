package verifier

import "strings"

// Static classifier tables. The disposable list is embedded the same way the
// original verifier shipped it: one domain per line, parsed once at startup.

var disposableDomains = loadDomainSet(disposableDomainList)

// roleLocalParts are non-personal mailbox names that depress deliverability
// confidence without making an address invalid.
var roleLocalParts = map[string]bool{
	"admin":         true,
	"administrator": true,
	"billing":       true,
	"contact":       true,
	"enquiries":     true,
	"feedback":      true,
	"hello":         true,
	"help":          true,
	"hr":            true,
	"info":          true,
	"inquiries":     true,
	"jobs":          true,
	"mail":          true,
	"marketing":     true,
	"newsletter":    true,
	"no-reply":      true,
	"noreply":       true,
	"office":        true,
	"postmaster":    true,
	"press":         true,
	"privacy":       true,
	"sales":         true,
	"security":      true,
	"service":       true,
	"support":       true,
	"team":          true,
	"webmaster":     true,
}

// commonTypos maps frequently mistyped provider domains to their correction.
var commonTypos = map[string]string{
	"gmai.com":      "gmail.com",
	"gmal.com":      "gmail.com",
	"gmial.com":     "gmail.com",
	"gmaill.com":    "gmail.com",
	"gmail.co":      "gmail.com",
	"gmail.cm":      "gmail.com",
	"gmail.con":     "gmail.com",
	"yaho.com":      "yahoo.com",
	"yahooo.com":    "yahoo.com",
	"yahoo.co":      "yahoo.com",
	"hotmai.com":    "hotmail.com",
	"hotmal.com":    "hotmail.com",
	"hotmail.co":    "hotmail.com",
	"outlok.com":    "outlook.com",
	"outloo.com":    "outlook.com",
	"outlook.co":    "outlook.com",
	"icloud.co":     "icloud.com",
	"iclou.com":     "icloud.com",
	"protonmai.com": "protonmail.com",
}

// knownProviderDomains back the fuzzy typo match and the DNS cache preseed.
var knownProviderDomains = []string{
	"gmail.com", "yahoo.com", "outlook.com", "hotmail.com", "aol.com",
	"protonmail.com", "icloud.com", "mail.com", "yandex.com", "zoho.com",
	"gmx.com", "live.com", "msn.com", "fastmail.com", "me.com",
}

func loadDomainSet(raw string) map[string]bool {
	domains := make(map[string]bool)
	for _, d := range strings.Split(raw, "\n") {
		d = strings.TrimSpace(d)
		if d != "" {
			domains[d] = true
		}
	}
	return domains
}

const disposableDomainList = `
mailinator.com
mailinator.net
mailinator.org
tempmail.com
tempmail.org
temp-mail.org
temp-mail.io
tempmailaddress.com
tempail.com
tempomail.fr
tempinbox.com
temporaryinbox.com
temporaryemail.net
temporaryforwarding.com
10minutemail.com
10minutemail.co.za
20minutemail.com
30minutemail.com
60minutemail.com
guerrillamail.com
guerrillamail.biz
guerrillamail.de
guerrillamail.info
guerrillamail.net
guerrillamail.org
guerrillamailblock.com
guerillamail.com
guerillamail.net
guerillamail.org
sharklasers.com
trashmail.com
trashmail.net
trashmail.org
trashmail.me
trashmail.at
trashmail.de
trashmail.ws
trash-mail.at
trash-mail.com
trash-mail.de
trashymail.com
trashymail.net
trashmailer.com
trashdevil.com
yopmail.com
yopmail.fr
yopmail.net
maildrop.cc
dispostable.com
fakeinbox.com
throwawaymail.com
throwawayemailaddress.com
mailnesia.com
getairmail.com
mytemp.email
fake-mail.com
mail-temp.com
mailmetrash.com
discard.email
discardmail.com
discardmail.de
mailcatch.com
tempemail.net
tempemail.biz
tempemail.com
mintemail.com
notmailinator.com
spamgourmet.com
spamhole.com
spam.la
spam4.me
spamspot.com
spambox.us
spamfree24.org
spamfree24.de
spamfree24.eu
spamfree.eu
spamdecoy.net
spamday.com
spamherelots.com
spamhereplease.com
spamthis.co.uk
spamthisplease.com
spamavert.com
spambog.com
spambog.de
spambog.net
spambog.ru
suremail.info
mailexpire.com
mailforspam.com
mailsac.com
mailscrap.com
mailshell.com
mailsiphon.com
mailslite.com
mailtemp.info
mailtrash.net
mailnull.com
maildu.de
mailbidon.com
mailbucket.org
mailcat.biz
meltmail.com
mycleaninbox.net
myphantomemail.com
mytempemail.com
mytempmail.com
mytrashmail.com
neverbox.com
no-spam.ws
nobulk.com
noclickemail.com
nomail2me.com
nospammail.net
nowmymail.com
objectmail.com
oneoffemail.com
onewaymail.com
oopi.org
pookmail.com
proxymail.eu
quickinbox.com
rcpt.at
rejectmail.com
safetymail.info
selfdestructingmail.com
sendspamhere.com
shitmail.me
shortmail.net
sneakemail.com
snkmail.com
sofort-mail.de
sogetthis.com
spamcannon.com
spamcannon.net
spamcero.com
spamcon.org
spamcorptastic.com
spamcowboy.com
spamex.com
spamify.com
spaminator.de
spamkill.info
spaml.com
spaml.de
spammotel.com
spamobox.com
spamoff.de
spamslicer.com
spamstack.net
spamtrail.com
tempalias.com
tempe-mail.com
tempmail2.com
tempmaildemo.com
tempmailer.com
tempmailer.de
thankyou2010.com
thismail.net
tmailinator.com
tradermail.info
wegwerfadresse.de
wegwerfemail.com
wegwerfemail.de
wegwerfmail.de
wegwerfmail.info
wegwerfmail.net
wegwerfmail.org
wh4f.org
whyspam.me
willselfdestruct.com
wuzup.net
wuzupmail.net
yep.it
zehnminutenmail.de
zippymail.info
zoemail.net
zoemail.org
0-mail.com
0clickemail.com
33mail.com
e4ward.com
emailsensei.com
emailtemporario.com.br
emailwarden.com
binkmail.com
bobmail.info
bofthew.com
bouncr.com
brefmail.com
bugmenot.com
deadaddress.com
deadspam.com
despammed.com
devnullmail.com
dodgeit.com
dodgit.com
dontreg.com
dump-email.info
dumpyemail.com
emailinfive.com
explodemail.com
filzmail.com
fudgerub.com
get1mail.com
getonemail.com
gishpuppy.com
haltospam.com
harakirimail.com
hidemail.de
hmamail.com
ieatspam.eu
ihateyoualot.info
imails.info
inboxclean.com
incognitomail.com
incognitomail.net
incognitomail.org
jetable.com
jetable.net
jetable.org
junk1e.com
kasmail.com
killmail.com
killmail.net
klzlk.com
kurzepost.de
letthemeatspam.com
litedrop.com
lookugly.com
mail4trash.com
mailblocks.com
mailfreeonline.com
mailguard.me
mailimate.com
mailin8r.com
mailinater.com
mailincubator.com
mailismagic.com
mailmoat.com
mailpick.biz
mailquack.com
mailrock.biz
mailseal.de
mailslapping.com
mailtome.de
mailtv.net
mailzilla.com
mailzilla.org
`
