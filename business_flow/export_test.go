package businessflow

var GenerateLinkID = generateLinkID
