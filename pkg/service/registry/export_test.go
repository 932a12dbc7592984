package registry

var AdoptPrimary = (*Registry).adoptPrimary
