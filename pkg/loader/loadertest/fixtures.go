// Package loadertest holds .proto sources shared by tests across packages.
package loadertest

// RouteGuidePath is the import path of the RouteGuide example file
const RouteGuidePath = "rguide/routeguide.proto"

// RouteGuideProto is the RouteGuide example service
const RouteGuideProto = `syntax = "proto3";

package routeguide;

option go_package = "github.com/juliaogris/guppy/pkg/rguide";

service RouteGuide {
  rpc GetFeature(Point) returns (Feature);
  rpc GetDefaultFeature(Point) returns (Feature);
  rpc ListFeatures(Rectangle) returns (stream Feature);
  rpc RecordRoute(stream Point) returns (RouteSummary);
  rpc RouteChat(stream RouteNote) returns (stream RouteNote);
}

message Point {
  int32 latitude = 1;
  int32 longitude = 2;
}

message Rectangle {
  Point lo = 1;
  Point hi = 2;
}

message Feature {
  string name = 1;
  Point location = 2;
}

message RouteNote {
  Point location = 1;
  string message = 2;
}

message RouteSummary {
  int32 point_count = 1;
  int32 feature_count = 2;
  int32 distance = 3;
  int32 elapsed_time = 4;
}
`

// RouteGuide returns the RouteGuide file keyed by path
func RouteGuide() map[string]string {
	return map[string]string{RouteGuidePath: RouteGuideProto}
}

// Extensions returns a proto2 base message extended from a second file,
// both at top level and from inside a message. The extension numbers are
// declared out of ascending order.
func Extensions() map[string]string {
	return map[string]string{
		"ext/base.proto": `syntax = "proto2";

package ext;

message Base {
  optional string id = 1;
  extensions 100 to 200;
}

message Plain {
  optional string id = 1;
}
`,
		"ext/more.proto": `syntax = "proto2";

package ext;

import "ext/base.proto";

extend Base {
  optional string note = 150;
  optional int32 level = 101;
}

message Holder {
  extend Base {
    optional bool flag = 120;
  }
}
`,
	}
}

// Diamond returns files whose imports form a diamond, plus a file that
// re-exports the shared leaf through a public import.
//
//	app -> left -> leaf
//	app -> right -> leaf
//	facade -> left, public leaf
func Diamond() map[string]string {
	return map[string]string{
		"diamond/leaf.proto": `syntax = "proto3";
package diamond;
message Leaf { string id = 1; }
`,
		"diamond/left.proto": `syntax = "proto3";
package diamond;
import "diamond/leaf.proto";
message Left { Leaf leaf = 1; }
`,
		"diamond/right.proto": `syntax = "proto3";
package diamond;
import "diamond/leaf.proto";
message Right { Leaf leaf = 1; }
`,
		"diamond/app.proto": `syntax = "proto3";
package diamond;
import "diamond/left.proto";
import "diamond/right.proto";
message App {
  Left left = 1;
  Right right = 2;
}
service AppService {
  rpc Get(Left) returns (Right);
}
`,
		"diamond/facade.proto": `syntax = "proto3";
package diamond;
import public "diamond/leaf.proto";
import "diamond/left.proto";
message Facade { Left left = 1; }
`,
	}
}

// WellKnown returns a file importing a standard google/protobuf file
func WellKnown() map[string]string {
	return map[string]string{
		"clock/clock.proto": `syntax = "proto3";
package clock;
import "google/protobuf/timestamp.proto";
service Clock {
  rpc Now(NowRequest) returns (google.protobuf.Timestamp);
}
message NowRequest {}
`,
	}
}

// Merge combines several source maps. Later maps win on path clashes.
func Merge(sets ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, set := range sets {
		for path, content := range set {
			out[path] = content
		}
	}
	return out
}
