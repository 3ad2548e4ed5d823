package filter

import (
	"github.com/seqsense/pcdcluster/pcd"
)

type Filter interface {
	Filter(*pcd.PointCloud) (*pcd.PointCloud, error)
}
